package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/mealcart/internal/auth"
	"github.com/dukerupert/mealcart/internal/period"
	"github.com/dukerupert/mealcart/internal/planner"
	"github.com/dukerupert/mealcart/internal/websocket"
)

type GroceryHandler struct {
	svc     *planner.Service
	hub     *websocket.Hub
	timeout time.Duration
	logger  *slog.Logger
}

func NewGroceryHandler(svc *planner.Service, hub *websocket.Hub, timeout time.Duration, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{svc: svc, hub: hub, timeout: timeout, logger: logger}
}

func (h *GroceryHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

func (h *GroceryHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	mode, err := period.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	sums, err := h.svc.ListPeriods(ctx, auth.UserID(r.Context()), mode)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"today":   period.FormatDate(h.svc.Today()),
		"periods": sums,
	})
}

type generateRequest struct {
	PeriodStart string `json:"period_start" validate:"required,isodate"`
	PeriodEnd   string `json:"period_end" validate:"required,isodate"`
}

func (h *GroceryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, _ := period.ParseDate(req.PeriodStart)
	end, _ := period.ParseDate(req.PeriodEnd)
	userID := auth.UserID(r.Context())

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	res, err := h.svc.GenerateList(ctx, userID, start, end)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.broadcast(userID, websocket.Message{
		Type:        websocket.TypeListGenerated,
		ListID:      res.List.ID,
		PeriodStart: period.FormatDate(res.List.PeriodStart),
		Revision:    res.List.Revision,
	})

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res.List)
}

func (h *GroceryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	l, err := h.svc.GetList(ctx, auth.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type toggleRequest struct {
	Revision *int64 `json:"revision" validate:"omitempty,gt=0"`
}

func (h *GroceryHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "invalid item index")
		return
	}

	// The body is optional; an empty one toggles without a revision check.
	var req toggleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Code: "validation_failed", Fields: validationMessages(err)})
		return
	}
	if rev := r.Header.Get("If-Match"); req.Revision == nil && rev != "" {
		n, err := strconv.ParseInt(rev, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_revision", "If-Match must be a revision number")
			return
		}
		req.Revision = &n
	}

	userID := auth.UserID(r.Context())
	ctx, cancel := storeContext(r, h.timeout)
	defer cancel()

	l, err := h.svc.ToggleItem(ctx, userID, id, index, req.Revision)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.broadcast(userID, websocket.Message{
		Type:        websocket.TypeItemToggled,
		ListID:      l.ID,
		PeriodStart: period.FormatDate(l.PeriodStart),
		Revision:    l.Revision,
		ItemIndex:   &index,
	})
	writeJSON(w, http.StatusOK, l)
}
