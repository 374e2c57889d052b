package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/mealcart/internal/backup"
	"github.com/dukerupert/mealcart/internal/config"
	"github.com/dukerupert/mealcart/internal/handler"
	"github.com/dukerupert/mealcart/internal/metrics"
	"github.com/dukerupert/mealcart/internal/middleware"
	"github.com/dukerupert/mealcart/internal/planner"
	"github.com/dukerupert/mealcart/internal/store"
	ws "github.com/dukerupert/mealcart/internal/websocket"
)

type Server struct {
	db             *sql.DB
	cfg            *config.Config
	hub            *ws.Hub
	metrics        *metrics.Metrics
	groceryH       *handler.GroceryHandler
	mealPlanH      *handler.MealPlanHandler
	recipeH        *handler.RecipeHandler
	backupH        *handler.BackupHandler
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	originPatterns []string
	logger         *slog.Logger
}

// New wires stores, the planner engine and the HTTP handlers. now may be nil.
func New(db *sql.DB, cfg *config.Config, now func() time.Time, logger *slog.Logger) *Server {
	m := metrics.New()
	hub := ws.NewHub(logger.With("component", "websocket"), m)

	mealStore := store.NewMealPlanStore(db)
	recipeStore := store.NewRecipeStore(db)
	groceryStore := store.NewGroceryStore(db)

	svc := planner.NewService(mealStore, groceryStore, planner.Options{
		PastPeriods:   cfg.PastPeriods,
		FuturePeriods: cfg.FuturePeriods,
		Location:      cfg.Location,
		Now:           now,
		Recorder:      m,
	}, logger.With("component", "planner"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		Passphrase: cfg.BackupPassphrase,
		Interval:   cfg.BackupInterval,
		Retention:  cfg.BackupRetention,
	}, db, m.BackupFinished, logger.With("component", "backup"))

	return &Server{
		db:             db,
		cfg:            cfg,
		hub:            hub,
		metrics:        m,
		groceryH:       handler.NewGroceryHandler(svc, hub, cfg.StoreTimeout, logger.With("component", "grocery")),
		mealPlanH:      handler.NewMealPlanHandler(mealStore, recipeStore, hub, cfg.StoreTimeout, logger.With("component", "meal_plan")),
		recipeH:        handler.NewRecipeHandler(recipeStore, cfg.StoreTimeout, logger.With("component", "recipe")),
		backupH:        handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		originPatterns: cfg.WSOriginPatterns,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.registerProtectedRoutes(mux)

	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// protected registers h behind RequireUser. Routes share one mux so the
// request logger sees the matched pattern.
func protected(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, middleware.RequireUser(h))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByUser, s.cfg.GenerateRateLimit, time.Minute)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protected(mux, "GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))

	// Period overview and grocery lists
	protected(mux, "GET /api/periods", http.HandlerFunc(s.groceryH.ListPeriods))
	protected(mux, "POST /api/grocery-lists/generate", s.rateLimited(s.groceryH.Generate))
	protected(mux, "GET /api/grocery-lists/{id}", http.HandlerFunc(s.groceryH.Get))
	protected(mux, "POST /api/grocery-lists/{id}/items/{index}/toggle", http.HandlerFunc(s.groceryH.ToggleItem))

	// Meal plans
	protected(mux, "POST /api/meal-plans", http.HandlerFunc(s.mealPlanH.Create))
	protected(mux, "GET /api/meal-plans", http.HandlerFunc(s.mealPlanH.List))
	protected(mux, "DELETE /api/meal-plans/{id}", http.HandlerFunc(s.mealPlanH.Delete))

	// Recipes
	protected(mux, "POST /api/recipes", http.HandlerFunc(s.recipeH.Create))
	protected(mux, "GET /api/recipes/{id}", http.HandlerFunc(s.recipeH.Get))

	// Backups
	protected(mux, "POST /api/backups", http.HandlerFunc(s.backupH.Run))
	protected(mux, "GET /api/backups", http.HandlerFunc(s.backupH.List))
	protected(mux, "GET /api/backups/status", http.HandlerFunc(s.backupH.Status))
}
