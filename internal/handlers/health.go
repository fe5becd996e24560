package handlers

import (
	"net/http"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse explains why the service is or is not ready.
type ReadinessResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// HealthCheck returns the health status of the service. It never touches the
// tools or the work directory.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Timestamp: time.Now().UTC().Format(timestampLayout),
	})
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when both tools are installed and the work
// directory accepts writes.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.tool.Available(); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Reason: err.Error()})
		return
	}
	if err := h.ws.Writable(); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Reason: err.Error()})
		return
	}
	writeJSONStatus(w, http.StatusOK, "ready")
}
