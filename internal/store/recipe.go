package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/mealcart/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

const recipeCols = `id, name, servings, ingredients, created_at`

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	var ingredients string
	if err := scanner.Scan(&r.ID, &r.Name, &r.Servings, &ingredients, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients for recipe %d: %w", r.ID, err)
	}
	return &r, nil
}

func (s *RecipeStore) Create(ctx context.Context, name string, servings int, ingredients []model.Ingredient) (*model.Recipe, error) {
	if ingredients == nil {
		ingredients = []model.Ingredient{}
	}
	data, err := json.Marshal(ingredients)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO recipes (name, servings, ingredients) VALUES (?, ?, ?)`,
		name, servings, string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*model.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipeCols+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}
