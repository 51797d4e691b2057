package handler

import (
	"net/http"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// StatusHandler serves the running mode and network.
type StatusHandler struct {
	status func() domain.ServiceStatus
}

// NewStatusHandler creates a StatusHandler reading from status on every call.
func NewStatusHandler(status func() domain.ServiceStatus) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the current service status.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}
