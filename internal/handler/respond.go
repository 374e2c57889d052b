package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/mealcart/internal/period"
	"github.com/dukerupert/mealcart/internal/planner"
)

// maxBodyBytes bounds request bodies; recipes are the largest payload.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := period.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// decodeJSON reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: validationMessages(err),
		})
		return false
	}
	return true
}

func validationMessages(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch e.Tag() {
		case "required":
			out[field] = "is required"
		case "isodate":
			out[field] = "must be a date in YYYY-MM-DD format"
		case "oneof":
			out[field] = "must be one of: " + e.Param()
		case "gt", "gte":
			out[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			out[field] = fmt.Sprintf("must be at most %s", e.Param())
		default:
			out[field] = "is invalid"
		}
	}
	return out
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// storeContext bounds the store calls made on behalf of one request.
func storeContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}

// writeServiceError maps engine errors onto HTTP statuses and stable codes.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, planner.ErrNoMealPlans):
		writeError(w, http.StatusUnprocessableEntity, "no_meal_plans", err.Error())
	case errors.Is(err, planner.ErrReadOnlyPeriod):
		writeError(w, http.StatusConflict, "read_only_period", err.Error())
	case errors.Is(err, planner.ErrStaleRevision):
		writeError(w, http.StatusConflict, "stale_revision", err.Error())
	case errors.Is(err, planner.ErrItemIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "item_index_out_of_range", err.Error())
	case errors.Is(err, planner.ErrListNotFound):
		writeError(w, http.StatusNotFound, "not_found", "grocery list not found")
	case errors.Is(err, planner.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	default:
		writeStoreError(w, logger, err)
	}
}

// writeStoreError logs the cause and answers 503 without leaking it.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("store unavailable", "error", err)
	writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage is temporarily unavailable")
}
