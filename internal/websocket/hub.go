package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message types pushed to clients.
const (
	TypeListGenerated   = "grocery_list_generated"
	TypeItemToggled     = "grocery_item_toggled"
	TypeMealPlanCreated = "meal_plan_created"
	TypeMealPlanDeleted = "meal_plan_deleted"
)

// Message tells a user's other sessions that their data changed and which
// read to refresh. It never carries the list itself.
type Message struct {
	Type        string `json:"type"`
	ListID      int64  `json:"list_id,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	Revision    int64  `json:"revision,omitempty"`
	ItemIndex   *int   `json:"item_index,omitempty"`
	MealPlanID  int64  `json:"meal_plan_id,omitempty"`
}

// Observer is notified as clients come and go.
type Observer interface {
	ClientConnected()
	ClientDisconnected()
}

// Hub tracks connected clients per user and fans messages out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*Client]struct{}
	logger   *slog.Logger
	observer Observer
}

// NewHub creates a new Hub. observer may be nil.
func NewHub(logger *slog.Logger, observer Observer) *Hub {
	return &Hub{
		clients:  make(map[int64]map[*Client]struct{}),
		logger:   logger,
		observer: observer,
	}
}

// Register adds a client to its user's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.ClientConnected()
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := false
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			removed = true
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	if removed && h.observer != nil {
		h.observer.ClientDisconnected()
	}
}

// BroadcastTo sends a message to every connected client of userID.
func (h *Hub) BroadcastTo(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the request path.
			h.logger.Warn("dropping websocket message", "user_id", userID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
