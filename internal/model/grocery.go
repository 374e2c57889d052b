package model

import "time"

// GroceryItem is one consolidated line on a generated shopping list. Items are
// stored as a JSON array on the list row; the field names are the wire format.
type GroceryItem struct {
	Name           string   `json:"name"`
	Amount         float64  `json:"amount"`
	Unit           string   `json:"unit"`
	Recipes        []string `json:"recipes"`
	Checked        bool     `json:"checked"`
	EstimatedPrice float64  `json:"estimated_price"`
}

type GroceryList struct {
	ID                  int64         `json:"id"`
	UserID              int64         `json:"user_id"`
	PeriodStart         time.Time     `json:"period_start"`
	PeriodEnd           time.Time     `json:"period_end"`
	Name                string        `json:"name"`
	Items               []GroceryItem `json:"items"`
	EstimatedCost       float64       `json:"estimated_cost"`
	CreatedFromMealPlan bool          `json:"created_from_meal_plan"`
	Revision            int64         `json:"revision"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// CheckedCount returns the number of items marked as bought.
func (l *GroceryList) CheckedCount() int {
	n := 0
	for _, it := range l.Items {
		if it.Checked {
			n++
		}
	}
	return n
}
