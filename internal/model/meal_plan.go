package model

import "time"

type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type Recipe struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Servings    int          `json:"servings"`
	Ingredients []Ingredient `json:"ingredients"`
	CreatedAt   time.Time    `json:"created_at"`
}

type MealPlan struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      time.Time `json:"date"`
	MealType  string    `json:"meal_type"`
	RecipeID  int64     `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MealPlanEntry is a scheduled meal joined with its recipe content.
type MealPlanEntry struct {
	Date        time.Time    `json:"date"`
	MealType    string       `json:"meal_type"`
	RecipeID    int64        `json:"recipe_id"`
	RecipeName  string       `json:"recipe_name"`
	Ingredients []Ingredient `json:"ingredients"`
	Servings    int          `json:"servings"`
}
