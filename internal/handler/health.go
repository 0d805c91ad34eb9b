package handler

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"wot-clan-dashboard/pkg/response"
)

// Handler contains the health and status HTTP handlers.
type Handler struct {
	db        *sql.DB
	version   string
	startTime time.Time
}

// New creates a new handler.
func New(db *sql.DB, version string) *Handler {
	return &Handler{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	ready := true
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			dbStatus = "unreachable"
			ready = false
		}
	}

	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response.OK(w, ReadyResponse{
		Ready:     ready,
		Timestamp: time.Now().UTC(),
		Database:  dbStatus,
	})
}

// StatusResponse represents the public status response for monitoring.
type StatusResponse struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MemoryMB      float64 `json:"memory_mb"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := StatusResponse{
		Service:       "wot-clan-dashboard",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		MemoryMB:      float64(int(float64(memStats.Alloc)/1024/1024*100)) / 100,
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
