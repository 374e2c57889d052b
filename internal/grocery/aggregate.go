package grocery

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dukerupert/mealcart/internal/model"
)

// Result is the consolidated item set for a batch of meal plans.
type Result struct {
	Items         []model.GroceryItem
	EstimatedCost float64
	// Skipped counts malformed ingredient lines that were left out.
	Skipped int
}

// Aggregator folds the ingredient lines of scheduled recipes into a single
// shopping list.
type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

type accumulator struct {
	item    model.GroceryItem
	recipes map[string]struct{}
}

// Aggregate merges ingredient lines by normalized name and raw unit string.
// Lines naming an ingredient already present under a different unit become a
// separate item. Prices are computed only after all amounts are summed.
func (a *Aggregator) Aggregate(entries []model.MealPlanEntry) Result {
	var (
		res   Result
		accs  []*accumulator
		index = make(map[string]int)
	)

	for _, e := range entries {
		recipe := strings.TrimSpace(e.RecipeName)
		if recipe == "" {
			recipe = fmt.Sprintf("recipe %d", e.RecipeID)
		}

		for i, ing := range e.Ingredients {
			key := normalizeName(ing.Name)
			if key == "" || !validAmount(ing.Amount) {
				a.logger.Warn("skipping malformed ingredient line",
					"recipe", recipe, "recipe_id", e.RecipeID, "line", i,
					"name", ing.Name, "amount", ing.Amount)
				res.Skipped++
				continue
			}

			mergeKey := key
			if idx, ok := index[key]; ok && accs[idx].item.Unit != ing.Unit {
				mergeKey = key + "_" + ing.Unit
			}

			if idx, ok := index[mergeKey]; ok {
				acc := accs[idx]
				acc.item.Amount += ing.Amount
				acc.recipes[recipe] = struct{}{}
				continue
			}

			index[mergeKey] = len(accs)
			accs = append(accs, &accumulator{
				item: model.GroceryItem{
					Name:   strings.TrimSpace(ing.Name),
					Amount: ing.Amount,
					Unit:   ing.Unit,
				},
				recipes: map[string]struct{}{recipe: {}},
			})
		}
	}

	res.Items = make([]model.GroceryItem, 0, len(accs))
	var cost float64
	for _, acc := range accs {
		item := acc.item
		item.Amount = roundAmount(item.Amount)
		item.Recipes = sortedKeys(acc.recipes)
		item.EstimatedPrice = EstimatePrice(item.Name, item.Amount, item.Unit)
		cost += item.EstimatedPrice
		res.Items = append(res.Items, item)
	}
	res.EstimatedCost = roundCents(cost)
	return res
}

// TotalCost sums the item prices of a list.
func TotalCost(items []model.GroceryItem) float64 {
	var cost float64
	for _, it := range items {
		cost += it.EstimatedPrice
	}
	return roundCents(cost)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// roundAmount trims float noise from repeated addition (0.1 + 0.2).
func roundAmount(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
