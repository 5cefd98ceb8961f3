package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Disconnect reasons used as the "reason" label of Disconnections.
const (
	ReasonClientGone  = "client_gone"
	ReasonWriteFailed = "write_failed"
	ReasonStale       = "stale"
	ReasonShutdown    = "shutdown"
)

// EventOther is the "event" label for every event name outside the fixed set.
// Event names come from API callers, so labelling by raw name would grow the
// series count without limit.
const EventOther = "other"

var knownEvents = map[string]struct{}{
	"connected":            {},
	"ping":                 {},
	"new_subscriber":       {},
	"subscriber_confirmed": {},
}

// EventLabel maps an event name onto the bounded "event" label set.
func EventLabel(name string) string {
	if _, ok := knownEvents[name]; ok {
		return name
	}
	return EventOther
}

// Connection metrics
var (
	// ConnectionsAccepted counts streaming connections that completed registration.
	ConnectionsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_connections_accepted_total",
			Help: "Streaming connections accepted by transport",
		},
		[]string{"transport"},
	)

	// Disconnections counts registry removals by reason.
	Disconnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_disconnections_total",
			Help: "Streaming connections removed from the registry by reason",
		},
		[]string{"reason"},
	)

	// ConnectionsReaped counts connections closed by the liveness reaper.
	ConnectionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_connections_reaped_total",
			Help: "Connections closed because their last successful write was too old",
		},
	)
)

// Delivery metrics
var (
	// Broadcasts counts fan-outs by EventLabel of the event name.
	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_broadcasts_total",
			Help: "Broadcast fan-outs by event kind",
		},
		[]string{"event"},
	)

	// Deliveries counts per-connection writes by status (success/failed).
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_deliveries_total",
			Help: "Per-connection event deliveries by status",
		},
		[]string{"status"},
	)

	// EncodingFailures counts events dropped because the payload could not be framed.
	EncodingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_encoding_failures_total",
			Help: "Events dropped because framing failed",
		},
	)

	// DeliveryPanics counts writer panics recovered during delivery.
	DeliveryPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_delivery_panics_total",
			Help: "Writer panics recovered during delivery",
		},
	)

	// Heartbeats counts keep-alive ticks.
	Heartbeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_heartbeats_total",
			Help: "Heartbeat ping broadcasts",
		},
	)

	// FanoutDuration tracks how long one fan-out takes end to end.
	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sse_fanout_duration_seconds",
			Help:    "Duration of a single broadcast or unicast fan-out",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)
)

// RegisterConnectedClients exposes the live registry size as a gauge.
// It is registered explicitly so that several hubs can coexist in tests.
func RegisterConnectedClients(reg prometheus.Registerer, count func() int) error {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sse_connected_clients",
			Help: "Currently registered streaming connections",
		},
		func() float64 { return float64(count()) },
	)
	return reg.Register(gauge)
}
