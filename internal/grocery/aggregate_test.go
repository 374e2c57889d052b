package grocery

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/mealcart/internal/model"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func entry(recipe string, ings ...model.Ingredient) model.MealPlanEntry {
	return model.MealPlanEntry{RecipeName: recipe, Ingredients: ings}
}

func TestAggregateMergesCaseInsensitiveNames(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Soup", model.Ingredient{Name: "onion", Amount: 1, Unit: "cup"}),
		entry("Stew", model.Ingredient{Name: "Onion", Amount: 1, Unit: "cup"}),
	})

	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(res.Items), res.Items)
	}
	item := res.Items[0]
	if item.Amount != 2 {
		t.Errorf("amount = %v, want 2", item.Amount)
	}
	if item.Unit != "cup" {
		t.Errorf("unit = %q, want %q", item.Unit, "cup")
	}
	if len(item.Recipes) != 2 || item.Recipes[0] != "Soup" || item.Recipes[1] != "Stew" {
		t.Errorf("recipes = %v, want [Soup Stew]", item.Recipes)
	}
	if item.Checked {
		t.Error("expected unchecked")
	}
}

func TestAggregatePricesFinalAmount(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Soup", model.Ingredient{Name: "onion", Amount: 1, Unit: "cup"}),
		entry("Stew", model.Ingredient{Name: "onion", Amount: 3, Unit: "cup"}),
	})

	// 4 cups -> 2 pound-equivalents at 1.20
	if got, want := res.Items[0].EstimatedPrice, 2.40; got != want {
		t.Errorf("estimated price = %v, want %v", got, want)
	}
	if res.EstimatedCost != 2.40 {
		t.Errorf("estimated cost = %v, want 2.40", res.EstimatedCost)
	}
}

func TestAggregateKeepsDifferentUnitsApart(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Bread",
			model.Ingredient{Name: "flour", Amount: 1, Unit: "cup"},
			model.Ingredient{Name: "flour", Amount: 200, Unit: "g"},
		),
	})

	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(res.Items), res.Items)
	}
	if res.Items[0].Unit != "cup" || res.Items[1].Unit != "g" {
		t.Errorf("units = %q, %q, want cup, g", res.Items[0].Unit, res.Items[1].Unit)
	}
}

func TestAggregateMergesIntoUnitVariant(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Bread", model.Ingredient{Name: "flour", Amount: 200, Unit: "g"}),
		entry("Cake", model.Ingredient{Name: "flour", Amount: 1, Unit: "cup"}),
		entry("Pancakes", model.Ingredient{Name: "Flour ", Amount: 1.5, Unit: "cup"}),
	})

	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(res.Items), res.Items)
	}
	cups := res.Items[1]
	if cups.Unit != "cup" || cups.Amount != 2.5 {
		t.Errorf("cup item = %+v, want 2.5 cup", cups)
	}
	if len(cups.Recipes) != 2 {
		t.Errorf("cup recipes = %v, want 2", cups.Recipes)
	}

	seen := make(map[string]bool)
	for _, it := range res.Items {
		key := normalizeName(it.Name) + "|" + it.Unit
		if seen[key] {
			t.Errorf("duplicate merge key %s", key)
		}
		seen[key] = true
	}
}

func TestAggregateUnitComparisonIsCaseSensitive(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("A", model.Ingredient{Name: "milk", Amount: 1, Unit: "Cup"}),
		entry("B", model.Ingredient{Name: "milk", Amount: 1, Unit: "cup"}),
	})
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
}

func TestAggregateSkipsMalformedLines(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Salad",
			model.Ingredient{Name: "", Amount: 1, Unit: "cup"},
			model.Ingredient{Name: "lettuce", Amount: 0, Unit: "head"},
			model.Ingredient{Name: "tomato", Amount: 2, Unit: "lb"},
			model.Ingredient{Name: "   ", Amount: 3, Unit: "lb"},
		),
	})

	if res.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", res.Skipped)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "tomato" {
		t.Fatalf("items = %+v, want only tomato", res.Items)
	}
}

func TestAggregateSameRecipeTwice(t *testing.T) {
	soup := entry("Soup", model.Ingredient{Name: "carrot", Amount: 2, Unit: "lb"})
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{soup, soup})

	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(res.Items))
	}
	if res.Items[0].Amount != 4 {
		t.Errorf("amount = %v, want 4", res.Items[0].Amount)
	}
	if len(res.Items[0].Recipes) != 1 {
		t.Errorf("recipes = %v, want a single entry", res.Items[0].Recipes)
	}
}

func TestAggregateCostIsSumOfItems(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		entry("Dinner",
			model.Ingredient{Name: "chicken breast", Amount: 1.5, Unit: "lb"},
			model.Ingredient{Name: "rice", Amount: 2, Unit: "cup"},
			model.Ingredient{Name: "garlic", Amount: 3, Unit: "cloves"},
			model.Ingredient{Name: "soy sauce", Amount: 2, Unit: "tbsp"},
		),
	})

	if got, want := res.EstimatedCost, TotalCost(res.Items); got != want {
		t.Errorf("estimated cost = %v, sum of items = %v", got, want)
	}
	if res.EstimatedCost <= 0 {
		t.Errorf("estimated cost = %v, want > 0", res.EstimatedCost)
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := newTestAggregator().Aggregate(nil)
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", res.Items)
	}
	if res.EstimatedCost != 0 {
		t.Errorf("estimated cost = %v, want 0", res.EstimatedCost)
	}
}

func TestAggregateUnnamedRecipe(t *testing.T) {
	res := newTestAggregator().Aggregate([]model.MealPlanEntry{
		{RecipeID: 7, Ingredients: []model.Ingredient{{Name: "egg", Amount: 2, Unit: "whole"}}},
	})
	if got := res.Items[0].Recipes; len(got) != 1 || got[0] != "recipe 7" {
		t.Errorf("recipes = %v, want [recipe 7]", got)
	}
}
