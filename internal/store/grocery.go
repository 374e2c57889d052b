package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/mealcart/internal/model"
	"github.com/dukerupert/mealcart/internal/period"
)

// ErrRevisionConflict is returned when a list was modified after the caller read it.
var ErrRevisionConflict = errors.New("grocery list revision conflict")

type GroceryStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db, now: time.Now}
}

const listCols = `id, user_id, period_start, period_end, name, items, estimated_cost, created_from_meal_plan, revision, created_at, updated_at`

func scanList(scanner interface{ Scan(...any) error }) (*model.GroceryList, error) {
	var l model.GroceryList
	var start, end, items string
	var fromMealPlan int
	err := scanner.Scan(
		&l.ID, &l.UserID, &start, &end, &l.Name, &items, &l.EstimatedCost,
		&fromMealPlan, &l.Revision, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedFromMealPlan = fromMealPlan != 0
	if l.PeriodStart, err = period.ParseDate(start); err != nil {
		return nil, err
	}
	if l.PeriodEnd, err = period.ParseDate(end); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &l.Items); err != nil {
		return nil, fmt.Errorf("decode items for list %d: %w", l.ID, err)
	}
	if l.Items == nil {
		l.Items = []model.GroceryItem{}
	}
	return &l, nil
}

func encodeItems(items []model.GroceryItem) (string, error) {
	if items == nil {
		items = []model.GroceryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(data), nil
}

func (s *GroceryStore) GetByID(ctx context.Context, id int64) (*model.GroceryList, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listCols+` FROM grocery_lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery list: %w", err)
	}
	return l, nil
}

// GetByPeriod returns the generated list for the user's period, or nil.
func (s *GroceryStore) GetByPeriod(ctx context.Context, userID int64, periodStart time.Time) (*model.GroceryList, error) {
	return getByPeriod(ctx, s.db, userID, periodStart)
}

func getByPeriod(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, userID int64, periodStart time.Time) (*model.GroceryList, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+listCols+` FROM grocery_lists
		 WHERE user_id = ? AND period_start = ? AND created_from_meal_plan = 1`,
		userID, period.FormatDate(periodStart),
	)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery list by period: %w", err)
	}
	return l, nil
}

// ListByPeriodStarts returns the user's generated lists whose period starts
// within [from, to], keyed by period key.
func (s *GroceryStore) ListByPeriodStarts(ctx context.Context, userID int64, from, to time.Time) (map[string]*model.GroceryList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listCols+` FROM grocery_lists
		 WHERE user_id = ? AND created_from_meal_plan = 1 AND period_start >= ? AND period_start <= ?
		 ORDER BY period_start DESC`,
		userID, period.FormatDate(from), period.FormatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list grocery lists: %w", err)
	}
	defer rows.Close()

	lists := make(map[string]*model.GroceryList)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery list: %w", err)
		}
		lists[period.FormatDate(l.PeriodStart)] = l
	}
	return lists, rows.Err()
}

// UpsertParams describes a generated list to persist.
type UpsertParams struct {
	UserID        int64
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Name          string
	Items         []model.GroceryItem
	EstimatedCost float64
}

// Upsert creates the generated list for (user, period start) or overwrites
// the existing one's items, cost and range, bumping its revision. It reports
// whether a new row was created.
func (s *GroceryStore) Upsert(ctx context.Context, p UpsertParams) (*model.GroceryList, bool, error) {
	items, err := encodeItems(p.Items)
	if err != nil {
		return nil, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getByPeriod(ctx, tx, p.UserID, p.PeriodStart)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO grocery_lists
		   (user_id, period_start, period_end, name, items, estimated_cost, created_from_meal_plan, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, 1, ?, ?)
		 ON CONFLICT(user_id, period_start) WHERE created_from_meal_plan = 1 DO UPDATE SET
		   period_end = excluded.period_end,
		   name = excluded.name,
		   items = excluded.items,
		   estimated_cost = excluded.estimated_cost,
		   revision = grocery_lists.revision + 1,
		   updated_at = excluded.updated_at`,
		p.UserID, period.FormatDate(p.PeriodStart), period.FormatDate(p.PeriodEnd),
		p.Name, items, p.EstimatedCost, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert grocery list: %w", err)
	}

	l, err := getByPeriod(ctx, tx, p.UserID, p.PeriodStart)
	if err != nil {
		return nil, false, err
	}
	if l == nil {
		return nil, false, fmt.Errorf("upsert grocery list: row missing after write")
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return l, existing == nil, nil
}

// UpdateItems replaces the item array of a list if its revision still equals
// expectedRevision. Returns ErrRevisionConflict otherwise.
func (s *GroceryStore) UpdateItems(ctx context.Context, id int64, items []model.GroceryItem, estimatedCost float64, expectedRevision int64) (*model.GroceryList, error) {
	data, err := encodeItems(items)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE grocery_lists
		 SET items = ?, estimated_cost = ?, revision = revision + 1, updated_at = ?
		 WHERE id = ? AND revision = ?`,
		data, estimatedCost, s.now().UTC(), id, expectedRevision,
	)
	if err != nil {
		return nil, fmt.Errorf("update grocery items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrRevisionConflict
	}
	return s.GetByID(ctx, id)
}
