package api

import (
	"encoding/json"
	"net/http"
	"time"

	"heartlink/link"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string        `json:"status"`
	App        string        `json:"app"`
	InstanceID string        `json:"instance_id"`
	Version    string        `json:"version"`
	UptimeSec  int64         `json:"uptime_sec"`
	Device     link.Snapshot `json:"device"`
}

// HealthHandler creates an HTTP handler for health checks
type HealthHandler struct {
	info      Info
	startTime time.Time
	device    Device
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(info Info, device Device) *HealthHandler {
	return &HealthHandler{
		info:      info,
		startTime: time.Now(),
		device:    device,
	}
}

// ServeHTTP handles /api/health. A missing board degrades the status but the
// service itself is up, so the code is always 200.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.device.Status()

	status := "ok"
	if !snap.Connected {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		App:        h.info.App,
		InstanceID: h.info.InstanceID,
		Version:    h.info.Version,
		UptimeSec:  int64(time.Since(h.startTime).Seconds()),
		Device:     snap,
	})
}

// NewStatusHandler serves the device snapshot
func NewStatusHandler(device Device) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, device.Status())
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
