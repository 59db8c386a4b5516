package monitoring

import (
	"time"

	"github.com/nliest/converse-be/internal/services"
	"github.com/nliest/converse-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// highCPUThreshold is the sustained CPU percentage that triggers an alert.
const highCPUThreshold = 90.0

// highCPUWindow is how long the threshold must hold before alerting.
const highCPUWindow = 2 * time.Minute

// ProcessStats is the payload broadcast to connected clients.
type ProcessStats struct {
	CPUPercent float64   `json:"cpuPercent"`
	MemoryRSS  uint64    `json:"memoryRss"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatUpdater periodically samples this process's resource usage, broadcasts
// it over the hub and records an event when CPU stays high.
type StatUpdater struct {
	hub          *websocket.Hub
	eventSvc     services.EventServiceProvider
	proc         *process.Process
	ticker       *time.Ticker
	done         chan bool
	highCPUSince time.Time
	alerted      bool
}

// NewStatUpdater creates a new StatUpdater for the current process.
func NewStatUpdater(hub *websocket.Hub, eventSvc services.EventServiceProvider, pid int32) (*StatUpdater, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	return &StatUpdater{
		hub:      hub,
		eventSvc: eventSvc,
		proc:     proc,
		done:     make(chan bool),
	}, nil
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(15 * time.Second)
	defer su.ticker.Stop()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.sample()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.done <- true
}

func (su *StatUpdater) sample() {
	cpu, err := su.proc.CPUPercent()
	if err != nil {
		log.Error().Err(err).Msg("StatUpdater: failed to sample CPU")
		return
	}

	var rss uint64
	if mem, err := su.proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}

	stats := ProcessStats{
		CPUPercent: cpu,
		MemoryRSS:  rss,
		Timestamp:  time.Now().UTC(),
	}
	su.hub.NotifyAll("system.stats", stats)

	su.checkHighCPU(cpu)
}

// checkHighCPU records a single alert event per sustained high-CPU window.
func (su *StatUpdater) checkHighCPU(cpu float64) {
	now := time.Now()
	if cpu < highCPUThreshold {
		su.highCPUSince = time.Time{}
		su.alerted = false
		return
	}

	if su.highCPUSince.IsZero() {
		su.highCPUSince = now
		return
	}

	if !su.alerted && now.Sub(su.highCPUSince) >= highCPUWindow {
		su.alerted = true
		log.Warn().Float64("cpu_percent", cpu).Msg("StatUpdater: sustained high CPU")
		if err := su.eventSvc.CreateEvent("system.alert.cpu", "warn", "sustained high CPU usage", nil); err != nil {
			log.Error().Err(err).Msg("StatUpdater: failed to record CPU alert")
		}
	}
}
