package handler

import (
	"net/http"

	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/pkg/apierror"
	"wot-clan-dashboard/pkg/response"
)

// Triggerer enqueues an on-demand sync run.
type Triggerer interface {
	TriggerNow()
}

// SyncHandler exposes the on-demand trigger and status endpoints.
type SyncHandler struct {
	garage    repository.GarageRepository
	syncState *service.SyncService
	trigger   Triggerer
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(garage repository.GarageRepository, syncState *service.SyncService, trigger Triggerer) *SyncHandler {
	return &SyncHandler{
		garage:    garage,
		syncState: syncState,
		trigger:   trigger,
	}
}

// Check handles GET /sync/check. If the garage already has rows it reports
// how many; otherwise it enqueues a background sync and returns immediately.
func (h *SyncHandler) Check(w http.ResponseWriter, r *http.Request) {
	total, err := h.garage.CountAll(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to check garage"))
		return
	}

	if total > 0 {
		response.OK(w, map[string]interface{}{
			"status": "ok",
			"found":  total,
		})
		return
	}

	h.trigger.TriggerNow()
	response.OK(w, map[string]interface{}{
		"status": "started",
	})
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.syncState.Status()

	state := "idle"
	if st.Running {
		state = "running"
	}
	response.OK(w, map[string]interface{}{
		"status":       state,
		"last_sync_ts": st.LastSyncTS,
		"cache_size":   st.CacheSize,
	})
}
