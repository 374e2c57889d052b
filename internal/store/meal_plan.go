package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/mealcart/internal/model"
	"github.com/dukerupert/mealcart/internal/period"
)

type MealPlanStore struct {
	db *sql.DB
}

func NewMealPlanStore(db *sql.DB) *MealPlanStore {
	return &MealPlanStore{db: db}
}

const mealPlanCols = `id, user_id, date, meal_type, recipe_id, created_at`

func scanMealPlan(scanner interface{ Scan(...any) error }) (*model.MealPlan, error) {
	var mp model.MealPlan
	var date string
	if err := scanner.Scan(&mp.ID, &mp.UserID, &date, &mp.MealType, &mp.RecipeID, &mp.CreatedAt); err != nil {
		return nil, err
	}
	d, err := period.ParseDate(date)
	if err != nil {
		return nil, err
	}
	mp.Date = d
	return &mp, nil
}

func (s *MealPlanStore) Create(ctx context.Context, userID int64, date time.Time, mealType string, recipeID int64) (*model.MealPlan, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, date, meal_type, recipe_id) VALUES (?, ?, ?, ?)`,
		userID, period.FormatDate(date), mealType, recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MealPlanStore) GetByID(ctx context.Context, id int64) (*model.MealPlan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealPlanCols+` FROM meal_plans WHERE id = ?`, id)
	mp, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal plan: %w", err)
	}
	return mp, nil
}

// ListByRange returns the user's meal plans dated within [start, end].
func (s *MealPlanStore) ListByRange(ctx context.Context, userID int64, start, end time.Time) ([]model.MealPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealPlanCols+` FROM meal_plans
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC, id ASC`,
		userID, period.FormatDate(start), period.FormatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("list meal plans: %w", err)
	}
	defer rows.Close()

	var plans []model.MealPlan
	for rows.Next() {
		mp, err := scanMealPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal plan: %w", err)
		}
		plans = append(plans, *mp)
	}
	return plans, rows.Err()
}

// ListEntries returns the user's meal plans within [start, end] joined with
// their recipe content, in date order.
func (s *MealPlanStore) ListEntries(ctx context.Context, userID int64, start, end time.Time) ([]model.MealPlanEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mp.date, mp.meal_type, r.id, r.name, r.ingredients, r.servings
		 FROM meal_plans mp
		 JOIN recipes r ON r.id = mp.recipe_id
		 WHERE mp.user_id = ? AND mp.date >= ? AND mp.date <= ?
		 ORDER BY mp.date ASC, mp.id ASC`,
		userID, period.FormatDate(start), period.FormatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("list meal plan entries: %w", err)
	}
	defer rows.Close()

	var entries []model.MealPlanEntry
	for rows.Next() {
		var e model.MealPlanEntry
		var date, ingredients string
		if err := rows.Scan(&date, &e.MealType, &e.RecipeID, &e.RecipeName, &ingredients, &e.Servings); err != nil {
			return nil, fmt.Errorf("scan meal plan entry: %w", err)
		}
		if e.Date, err = period.ParseDate(date); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ingredients), &e.Ingredients); err != nil {
			return nil, fmt.Errorf("decode ingredients for recipe %d: %w", e.RecipeID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByDate returns the number of scheduled meals per date key within
// [start, end].
func (s *MealPlanStore) CountByDate(ctx context.Context, userID int64, start, end time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, COUNT(*) FROM meal_plans
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 GROUP BY date`,
		userID, period.FormatDate(start), period.FormatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("count meal plans: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var date string
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan meal plan count: %w", err)
		}
		counts[date] = n
	}
	return counts, rows.Err()
}

// Delete removes a meal plan owned by userID. It reports whether a row was removed.
func (s *MealPlanStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete meal plan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
