package handlers

import (
	"net/http"
	"time"

	"github.com/coinflow/matching-engine/internal/api/models"
)

const version = "1.0.0"

// HealthHandler reports process liveness and event bus pressure
func (h *Holder) HealthHandler(w http.ResponseWriter, r *http.Request) {
	var dropped uint64
	if h.Bus != nil {
		dropped = h.Bus.Dropped()
	}

	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.Started).Seconds()),
		Version:       version,
		EventsDropped: dropped,
	})
}
