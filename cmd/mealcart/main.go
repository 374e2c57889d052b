package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/mealcart/internal/config"
	"github.com/dukerupert/mealcart/internal/database"
	"github.com/dukerupert/mealcart/internal/logging"
	"github.com/dukerupert/mealcart/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional config file; MEALCART_* variables override it")
	restoreKey := flag.String("restore-key", "", "download and decrypt this backup object, then exit")
	restoreTo := flag.String("restore-to", "mealcart-restored.db", "destination path for -restore-key")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, nil, logger)

	if *restoreKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := srv.BackupManager().Fetch(ctx, *restoreKey, *restoreTo); err != nil {
			slog.Error("restore failed", "key", *restoreKey, "error", err)
			os.Exit(1)
		}
		slog.Info("backup restored", "key", *restoreKey, "path", *restoreTo)
		return
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background tasks
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go srv.RateLimiter().RunCleanup(bgCtx, cfg.RateLimitSweepTick)
	srv.BackupManager().Start(bgCtx)

	go func() {
		slog.Info("mealcart starting", "addr", cfg.Addr(), "timezone", cfg.Location.String(), "backups", srv.BackupManager().Enabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	srv.BackupManager().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
