package hub

import (
	"time"

	"github.com/jonboulle/clockwork"

	"go-newsletter-sse/internal/infrastructure/metrics"
)

// Heartbeat periodically broadcasts a ping so that proxies and browsers do
// not drop idle streams.
type Heartbeat struct {
	clock       clockwork.Clock
	broadcaster Broadcaster
	task        *periodicTask
}

// NewHeartbeat creates a stopped heartbeat.
func NewHeartbeat(clock clockwork.Clock, broadcaster Broadcaster) *Heartbeat {
	return &Heartbeat{
		clock:       clock,
		broadcaster: broadcaster,
		task:        newPeriodicTask(clock),
	}
}

// Start begins pinging every interval. Starting a running heartbeat is a no-op.
func (hb *Heartbeat) Start(interval time.Duration) {
	hb.task.start(interval, hb.beat)
}

// Stop cancels the timer. Stopping a stopped heartbeat is a no-op.
func (hb *Heartbeat) Stop() {
	hb.task.halt()
}

// IsRunning reports whether the timer is active.
func (hb *Heartbeat) IsRunning() bool {
	return hb.task.running()
}

func (hb *Heartbeat) beat() {
	metrics.Heartbeats.Inc()
	hb.broadcaster.Broadcast(EventPing, PingPayload{Timestamp: Timestamp(hb.clock.Now())})
}
