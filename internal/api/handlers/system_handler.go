package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/nliest/converse-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemHandler serves liveness and audit-trail endpoints.
type SystemHandler struct {
	events  services.EventServiceProvider
	proc    *process.Process
	started time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(events services.EventServiceProvider) *SystemHandler {
	// Process stats are best-effort; proc stays nil on unsupported platforms.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process stats unavailable for health endpoint")
	}
	return &SystemHandler{events: events, proc: proc, started: time.Now()}
}

// Health reports that the API is running.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}

	if h.proc != nil {
		if cpu, err := h.proc.CPUPercent(); err == nil {
			body["cpuPercent"] = cpu
		}
		if mem, err := h.proc.MemoryInfo(); err == nil && mem != nil {
			body["memoryRss"] = mem.RSS
		}
	}

	respondData(w, http.StatusOK, body)
}

// GetEvents returns the most recent audit events.
func (h *SystemHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.GetRecentEvents(50)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load recent events")
		respondError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
