package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/mealcart/internal/grocery"
	"github.com/dukerupert/mealcart/internal/model"
	"github.com/dukerupert/mealcart/internal/period"
	"github.com/dukerupert/mealcart/internal/store"
)

// MealPlanReader is the read side of the meal plan datastore.
type MealPlanReader interface {
	ListEntries(ctx context.Context, userID int64, start, end time.Time) ([]model.MealPlanEntry, error)
	CountByDate(ctx context.Context, userID int64, start, end time.Time) (map[string]int, error)
}

// ListStore persists generated grocery lists.
type ListStore interface {
	GetByID(ctx context.Context, id int64) (*model.GroceryList, error)
	GetByPeriod(ctx context.Context, userID int64, periodStart time.Time) (*model.GroceryList, error)
	ListByPeriodStarts(ctx context.Context, userID int64, from, to time.Time) (map[string]*model.GroceryList, error)
	Upsert(ctx context.Context, p store.UpsertParams) (*model.GroceryList, bool, error)
	UpdateItems(ctx context.Context, id int64, items []model.GroceryItem, estimatedCost float64, expectedRevision int64) (*model.GroceryList, error)
}

// Recorder receives engine events for instrumentation.
type Recorder interface {
	ListGenerated(created bool, elapsed time.Duration)
	GenerationFailed(reason string)
	ItemToggled(outcome string)
	IngredientsSkipped(n int)
}

type nopRecorder struct{}

func (nopRecorder) ListGenerated(bool, time.Duration) {}
func (nopRecorder) GenerationFailed(string)           {}
func (nopRecorder) ItemToggled(string)                {}
func (nopRecorder) IngredientsSkipped(int)            {}

// Options tunes the period window and the notion of "today".
type Options struct {
	PastPeriods   int
	FuturePeriods int
	Location      *time.Location
	Now           func() time.Time
	Recorder      Recorder
}

// Service implements period listing, list generation and item toggling.
type Service struct {
	meals      MealPlanReader
	lists      ListStore
	aggregator *grocery.Aggregator
	group      singleflight.Group
	opts       Options
	logger     *slog.Logger
}

func NewService(meals MealPlanReader, lists ListStore, opts Options, logger *slog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.PastPeriods < 0 {
		opts.PastPeriods = 0
	}
	if opts.FuturePeriods < 0 {
		opts.FuturePeriods = 0
	}
	return &Service{
		meals:      meals,
		lists:      lists,
		aggregator: grocery.NewAggregator(logger.With("component", "aggregator")),
		opts:       opts,
		logger:     logger,
	}
}

// Today returns the current calendar date in the configured location.
func (s *Service) Today() time.Time {
	return period.Date(s.opts.Now().In(s.opts.Location))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// GenerateResult is a persisted list and whether this call created it.
type GenerateResult struct {
	List    *model.GroceryList
	Created bool
}

// GenerateList builds the grocery list for the user's meals dated within
// [start, end] and persists it under the period start. Repeated calls for the
// same period overwrite the same list. Concurrent calls for one exact range
// share a single generation.
func (s *Service) GenerateList(ctx context.Context, userID int64, start, end time.Time) (*GenerateResult, error) {
	start, end = period.Date(start), period.Date(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, period.FormatDate(end), period.FormatDate(start))
	}

	key := fmt.Sprintf("%d:%s:%s", userID, period.FormatDate(start), period.FormatDate(end))
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(ctx, userID, start, end)
	})
	if err != nil {
		return nil, err
	}
	return v.(*GenerateResult), nil
}

func (s *Service) generate(ctx context.Context, userID int64, start, end time.Time) (*GenerateResult, error) {
	began := s.opts.Now()

	if end.Before(s.Today()) {
		existing, err := s.lists.GetByPeriod(ctx, userID, start)
		if err != nil {
			s.opts.Recorder.GenerationFailed("store")
			return nil, unavailable("load grocery list", err)
		}
		if existing != nil {
			s.opts.Recorder.GenerationFailed("read_only")
			return nil, fmt.Errorf("%w: list %d ended %s", ErrReadOnlyPeriod, existing.ID, period.FormatDate(existing.PeriodEnd))
		}
	}

	entries, err := s.meals.ListEntries(ctx, userID, start, end)
	if err != nil {
		s.opts.Recorder.GenerationFailed("store")
		return nil, unavailable("load meal plans", err)
	}
	if len(entries) == 0 {
		s.opts.Recorder.GenerationFailed("no_meal_plans")
		return nil, fmt.Errorf("%w: %s to %s", ErrNoMealPlans, period.FormatDate(start), period.FormatDate(end))
	}

	res := s.aggregator.Aggregate(entries)
	if res.Skipped > 0 {
		s.opts.Recorder.IngredientsSkipped(res.Skipped)
	}

	list, created, err := s.lists.Upsert(ctx, store.UpsertParams{
		UserID:        userID,
		PeriodStart:   start,
		PeriodEnd:     end,
		Name:          "Meals for " + RangeLabel(start, end),
		Items:         res.Items,
		EstimatedCost: res.EstimatedCost,
	})
	if err != nil {
		s.opts.Recorder.GenerationFailed("store")
		return nil, unavailable("save grocery list", err)
	}

	s.opts.Recorder.ListGenerated(created, s.opts.Now().Sub(began))
	s.logger.Info("grocery list generated",
		"user_id", userID, "list_id", list.ID, "period_start", period.FormatDate(start),
		"meals", len(entries), "items", len(list.Items), "created", created)
	return &GenerateResult{List: list, Created: created}, nil
}

// GetList returns one of the user's lists.
func (s *Service) GetList(ctx context.Context, userID, listID int64) (*model.GroceryList, error) {
	l, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, unavailable("load grocery list", err)
	}
	if l == nil || l.UserID != userID {
		return nil, ErrListNotFound
	}
	return l, nil
}

// ToggleItem flips the checked flag of the item at index. When
// expectedRevision is set it must match the stored revision.
func (s *Service) ToggleItem(ctx context.Context, userID, listID int64, index int, expectedRevision *int64) (*model.GroceryList, error) {
	l, err := s.GetList(ctx, userID, listID)
	if err != nil {
		s.opts.Recorder.ItemToggled(outcome(err))
		return nil, err
	}

	if l.PeriodEnd.Before(s.Today()) {
		s.opts.Recorder.ItemToggled("read_only")
		return nil, fmt.Errorf("%w: list %d ended %s", ErrReadOnlyPeriod, l.ID, period.FormatDate(l.PeriodEnd))
	}
	if index < 0 || index >= len(l.Items) {
		s.opts.Recorder.ItemToggled("out_of_range")
		return nil, fmt.Errorf("%w: index %d, list has %d items", ErrItemIndexOutOfRange, index, len(l.Items))
	}
	if expectedRevision != nil && *expectedRevision != l.Revision {
		s.opts.Recorder.ItemToggled("stale")
		return nil, fmt.Errorf("%w: have revision %d, current is %d", ErrStaleRevision, *expectedRevision, l.Revision)
	}

	items := make([]model.GroceryItem, len(l.Items))
	copy(items, l.Items)
	items[index].Checked = !items[index].Checked

	updated, err := s.lists.UpdateItems(ctx, l.ID, items, grocery.TotalCost(items), l.Revision)
	if errors.Is(err, store.ErrRevisionConflict) {
		s.opts.Recorder.ItemToggled("stale")
		return nil, fmt.Errorf("%w: list %d was modified concurrently", ErrStaleRevision, l.ID)
	}
	if err != nil {
		s.opts.Recorder.ItemToggled("store")
		return nil, unavailable("save grocery items", err)
	}

	s.opts.Recorder.ItemToggled("ok")
	return updated, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrListNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store"
	default:
		return "error"
	}
}

// RangeLabel names a date range, using the period label when the range is
// exactly one week, two-week or month period.
func RangeLabel(start, end time.Time) string {
	for _, mode := range []period.Mode{period.Month, period.TwoWeek, period.Week} {
		p := period.Containing(start, mode)
		if p.Start.Equal(start) && p.End.Equal(end) {
			return p.Label()
		}
	}
	if start.Equal(end) {
		return start.Format("Jan 2, 2006")
	}
	if start.Year() != end.Year() {
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}
