package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/mealcart/internal/auth"
	"github.com/dukerupert/mealcart/internal/model"
	"github.com/dukerupert/mealcart/internal/period"
	"github.com/dukerupert/mealcart/internal/store"
	"github.com/dukerupert/mealcart/internal/websocket"
)

// maxListRange caps GET /api/meal-plans to roughly a year of dates.
const maxListRange = 366

type MealPlanHandler struct {
	meals   *store.MealPlanStore
	recipes *store.RecipeStore
	hub     *websocket.Hub
	timeout time.Duration
	logger  *slog.Logger
}

func NewMealPlanHandler(ms *store.MealPlanStore, rs *store.RecipeStore, hub *websocket.Hub, timeout time.Duration, logger *slog.Logger) *MealPlanHandler {
	return &MealPlanHandler{meals: ms, recipes: rs, hub: hub, timeout: timeout, logger: logger}
}

func (h *MealPlanHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

type mealPlanRequest struct {
	Date     string `json:"date" validate:"required,isodate"`
	MealType string `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	RecipeID int64  `json:"recipe_id" validate:"required,gt=0"`
}

func (h *MealPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req mealPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, _ := period.ParseDate(req.Date)
	userID := auth.UserID(r.Context())

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	recipe, err := h.recipes.GetByID(ctx, req.RecipeID)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if recipe == nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown_recipe", "recipe not found")
		return
	}

	mp, err := h.meals.Create(ctx, userID, date, req.MealType, req.RecipeID)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	h.broadcast(userID, websocket.Message{Type: websocket.TypeMealPlanCreated, MealPlanID: mp.ID})
	writeJSON(w, http.StatusCreated, mp)
}

func (h *MealPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := period.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "start must be a date in YYYY-MM-DD format")
		return
	}
	end, err := period.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "end must be a date in YYYY-MM-DD format")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "invalid_range", "end is before start")
		return
	}
	if end.Sub(start) > maxListRange*24*time.Hour {
		writeError(w, http.StatusBadRequest, "invalid_range", "range is longer than a year")
		return
	}

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	plans, err := h.meals.ListByRange(ctx, auth.UserID(r.Context()), start, end)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if plans == nil {
		plans = []model.MealPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *MealPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	deleted, err := h.meals.Delete(ctx, userID, id)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", "meal plan not found")
		return
	}

	h.broadcast(userID, websocket.Message{Type: websocket.TypeMealPlanDeleted, MealPlanID: id})
	w.WriteHeader(http.StatusNoContent)
}

type RecipeHandler struct {
	recipes *store.RecipeStore
	timeout time.Duration
	logger  *slog.Logger
}

func NewRecipeHandler(rs *store.RecipeStore, timeout time.Duration, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: rs, timeout: timeout, logger: logger}
}

type ingredientRequest struct {
	Name   string  `json:"name" validate:"required,max=200"`
	Amount float64 `json:"amount" validate:"gt=0"`
	Unit   string  `json:"unit" validate:"max=32"`
}

type recipeRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Servings    int                 `json:"servings" validate:"gte=1"`
	Ingredients []ingredientRequest `json:"ingredients" validate:"required,dive"`
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ings := make([]model.Ingredient, len(req.Ingredients))
	for i, in := range req.Ingredients {
		ings[i] = model.Ingredient{
			Name:   strings.TrimSpace(in.Name),
			Amount: in.Amount,
			Unit:   strings.TrimSpace(in.Unit),
		}
	}

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	recipe, err := h.recipes.Create(ctx, strings.TrimSpace(req.Name), req.Servings, ings)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	recipe, err := h.recipes.GetByID(ctx, id)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if recipe == nil {
		writeError(w, http.StatusNotFound, "not_found", "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}
