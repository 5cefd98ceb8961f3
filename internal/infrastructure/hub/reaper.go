package hub

import (
	"time"

	"github.com/jonboulle/clockwork"

	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/infrastructure/metrics"
)

// Reaper closes connections whose last successful write is older than a
// threshold. It catches sockets that died without a close notification.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	logger   logger.Logger
	task     *periodicTask
}

// NewReaper creates a stopped reaper over registry.
func NewReaper(registry *Registry, clock clockwork.Clock, log logger.Logger) *Reaper {
	return &Reaper{
		registry: registry,
		clock:    clock,
		logger:   log.WithField("component", "reaper"),
		task:     newPeriodicTask(clock),
	}
}

// Start sweeps with threshold every period. Starting a running reaper is a no-op.
func (r *Reaper) Start(period, threshold time.Duration) {
	r.task.start(period, func() { r.Sweep(threshold) })
}

// Stop cancels the timer and waits for a sweep in progress.
func (r *Reaper) Stop() {
	r.task.halt()
}

// Sweep unregisters every entry idle for longer than threshold and returns
// how many were removed.
func (r *Reaper) Sweep(threshold time.Duration) int {
	now := r.clock.Now()
	reaped := 0

	r.registry.ForEach(func(id string, entry *Entry) {
		idle := now.Sub(entry.LastActivity())
		if idle <= threshold {
			return
		}
		if r.registry.Unregister(id) {
			reaped++
			metrics.ConnectionsReaped.Inc()
			metrics.Disconnections.WithLabelValues(metrics.ReasonStale).Inc()
			r.logger.Infof("Reaped inactive connection %s (idle %s)", id, idle.Round(time.Millisecond))
		}
	})

	if reaped > 0 {
		r.logger.Infof("Sweep removed %d inactive connections, %d remaining", reaped, r.registry.Count())
	}
	return reaped
}
