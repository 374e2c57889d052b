package planner

import (
	"context"
	"math"

	"github.com/dukerupert/mealcart/internal/model"
	"github.com/dukerupert/mealcart/internal/period"
)

// Summary statuses.
const (
	StatusCompleted  = "completed"
	StatusPartial    = "partial"
	StatusIncomplete = "incomplete"
)

// completedThreshold is the completion percentage at which a list counts as done.
const completedThreshold = 80

// PeriodSummary is one row of the period history view.
type PeriodSummary struct {
	period.Entry
	Key                  string  `json:"key"`
	Label                string  `json:"label"`
	ListID               *int64  `json:"list_id"`
	Revision             int64   `json:"revision,omitempty"`
	TotalItems           int     `json:"total_items"`
	CheckedItems         int     `json:"checked_items"`
	EstimatedCost        float64 `json:"estimated_cost"`
	CompletionPercentage int     `json:"completion_percentage"`
	Status               string  `json:"status"`
	PlannedMeals         int     `json:"planned_meals"`
	TotalPossibleMeals   int     `json:"total_possible_meals"`
}

// ListPeriods returns the user's period window for mode, most recent first,
// joined with any persisted lists and the number of meals planned per period.
func (s *Service) ListPeriods(ctx context.Context, userID int64, mode period.Mode) ([]PeriodSummary, error) {
	today := s.Today()
	oldest, newest := period.Bounds(today, mode, s.opts.PastPeriods, s.opts.FuturePeriods)

	lists, err := s.lists.ListByPeriodStarts(ctx, userID, oldest.Start, newest.Start)
	if err != nil {
		return nil, unavailable("list grocery lists", err)
	}
	counts, err := s.meals.CountByDate(ctx, userID, oldest.Start, newest.End)
	if err != nil {
		return nil, unavailable("count meal plans", err)
	}

	entries := period.GenerateWindow(today, mode, s.opts.PastPeriods, s.opts.FuturePeriods, func(p period.Period) bool {
		return listFor(p, lists) != nil
	})

	summaries := make([]PeriodSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, summarize(e, listFor(e.Period, lists), plannedMeals(e.Period, counts)))
	}
	return summaries, nil
}

// listFor returns the stored list covering exactly p. Lists are keyed by start
// date alone, so a week list starting on the 1st would otherwise also match
// that month.
func listFor(p period.Period, lists map[string]*model.GroceryList) *model.GroceryList {
	l := lists[p.Key()]
	if l == nil || !l.PeriodEnd.Equal(p.End) {
		return nil
	}
	return l
}

func summarize(e period.Entry, l *model.GroceryList, planned int) PeriodSummary {
	sum := PeriodSummary{
		Entry:              e,
		Key:                e.Key(),
		Label:              e.Label(),
		PlannedMeals:       planned,
		TotalPossibleMeals: e.TotalPossibleMeals(),
	}
	if l != nil {
		id := l.ID
		sum.ListID = &id
		sum.Revision = l.Revision
		sum.TotalItems = len(l.Items)
		sum.CheckedItems = l.CheckedCount()
		sum.EstimatedCost = l.EstimatedCost
	}
	sum.CompletionPercentage = CompletionPercentage(sum.CheckedItems, sum.TotalItems)
	sum.Status = Status(sum.CompletionPercentage, e.IsPast)
	return sum
}

// CompletionPercentage is checked/total as a rounded percentage, 0 for an empty list.
func CompletionPercentage(checked, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(checked) / float64(total) * 100))
}

// Status classifies a period by how much of its list was bought.
func Status(percentage int, isPast bool) string {
	switch {
	case percentage >= completedThreshold:
		return StatusCompleted
	case isPast:
		return StatusIncomplete
	default:
		return StatusPartial
	}
}

func plannedMeals(p period.Period, counts map[string]int) int {
	n := 0
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		n += counts[period.FormatDate(d)]
	}
	return n
}

