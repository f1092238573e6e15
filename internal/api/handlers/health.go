package handlers

import (
	"net/http"
	"time"
)

// HealthHandler answers liveness probes from the extension.
type HealthHandler struct {
	version string
	started time.Time
	active  func() int
}

func NewHealthHandler(version string, active func() int) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), active: active}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.active != nil {
		resp["active_polls"] = h.active()
	}
	jsonResponse(w, resp, http.StatusOK)
}
