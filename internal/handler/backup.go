package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/mealcart/internal/backup"
)

// BackupRunner is the part of backup.Manager the HTTP surface drives.
type BackupRunner interface {
	RunNow(ctx context.Context) (*backup.Result, error)
	List(ctx context.Context) ([]backup.Result, error)
	Status() backup.Status
}

type BackupHandler struct {
	mgr    BackupRunner
	logger *slog.Logger
}

func NewBackupHandler(mgr BackupRunner, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{mgr: mgr, logger: logger}
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.RunNow(r.Context())
	if err != nil {
		h.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.mgr.List(r.Context())
	if err != nil {
		h.writeBackupError(w, err)
		return
	}
	if items == nil {
		items = []backup.Result{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Status())
}

func (h *BackupHandler) writeBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "backup_not_configured", err.Error())
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, "backup_in_progress", err.Error())
	default:
		h.logger.Error("backup failed", "error", err)
		writeError(w, http.StatusBadGateway, "backup_failed", "backup failed")
	}
}
