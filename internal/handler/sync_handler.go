package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

// SyncQueue is the part of the offline queue exposed over HTTP.
type SyncQueue interface {
	ListPending(ctx context.Context) ([]models.PendingOperation, error)
	PendingCount(ctx context.Context) (int, error)
	IsSyncing() bool
	SyncPendingOperations(ctx context.Context) (models.SyncReport, error)
	Clear(ctx context.Context) error
	ListOfflineRides(ctx context.Context) ([]models.OfflineRide, error)
}

// Connectivity reports whether the remote database is reachable.
type Connectivity interface {
	IsOnline() bool
}

type SyncHandler struct {
	queue   SyncQueue
	monitor Connectivity
}

func NewSyncHandler(queue SyncQueue, monitor Connectivity) *SyncHandler {
	return &SyncHandler{queue: queue, monitor: monitor}
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sync/status", h.Status)
	r.Get("/sync/pending", h.ListPending)
	r.Get("/sync/offline-rides", h.ListOfflineRides)
	r.Post("/sync", h.ForceSync)
	r.Delete("/sync/pending", h.Clear)
}

// GET /v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.queue.PendingCount(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]interface{}{
		"online":        h.monitor.IsOnline(),
		"syncing":       h.queue.IsSyncing(),
		"pending_count": count,
	})
}

// GET /v1/sync/pending
func (h *SyncHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ops, err := h.queue.ListPending(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, ops)
}

// GET /v1/sync/offline-rides
func (h *SyncHandler) ListOfflineRides(w http.ResponseWriter, r *http.Request) {
	rides, err := h.queue.ListOfflineRides(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if rides == nil {
		rides = []models.OfflineRide{}
	}

	utils.Success(w, http.StatusOK, rides)
}

// POST /v1/sync
func (h *SyncHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.IsOnline() {
		utils.Error(w, apperrors.NewAPIError("offline", "sem conexão com o servidor, operações continuam na fila", http.StatusServiceUnavailable))
		return
	}

	report, err := h.queue.SyncPendingOperations(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if report.Skipped {
		handleError(w, apperrors.ErrSyncInProgress)
		return
	}

	utils.Success(w, http.StatusOK, report)
}

// DELETE /v1/sync/pending
func (h *SyncHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.queue.IsSyncing() {
		handleError(w, apperrors.ErrSyncInProgress)
		return
	}

	if err := h.queue.Clear(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	utils.NoContent(w)
}
