package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/infrastructure/metrics"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultStaleThreshold    = 90 * time.Second
	DefaultReapInterval      = 60 * time.Second
	DefaultFanoutConcurrency = 32
)

type options struct {
	clock             clockwork.Clock
	heartbeatInterval time.Duration
	staleThreshold    time.Duration
	reapInterval      time.Duration
	fanoutConcurrency int
}

// Option configures a Hub.
type Option func(*options)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithHeartbeatInterval sets the ping period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *options) { o.heartbeatInterval = d }
}

// WithStaleThreshold sets how long a connection may go without a successful
// write before the reaper closes it. Must be at least twice the heartbeat interval.
func WithStaleThreshold(d time.Duration) Option {
	return func(o *options) { o.staleThreshold = d }
}

// WithReapInterval sets how often the reaper sweeps.
func WithReapInterval(d time.Duration) Option {
	return func(o *options) { o.reapInterval = d }
}

// WithFanoutConcurrency bounds the number of parallel writes of one fan-out.
func WithFanoutConcurrency(n int) Option {
	return func(o *options) { o.fanoutConcurrency = n }
}

// Hub owns the connection registry and pushes events to every registered
// connection. A failing connection is removed without affecting the others.
type Hub struct {
	registry  *Registry
	heartbeat *Heartbeat
	reaper    *Reaper

	clock  clockwork.Clock
	logger logger.Logger
	opts   options

	running   bool
	runningMu sync.RWMutex

	// One fan-out completes before the next begins.
	fanoutMu sync.Mutex
}

// New creates a stopped Hub.
func New(log logger.Logger, opts ...Option) *Hub {
	o := options{
		clock:             clockwork.NewRealClock(),
		heartbeatInterval: DefaultHeartbeatInterval,
		staleThreshold:    DefaultStaleThreshold,
		reapInterval:      DefaultReapInterval,
		fanoutConcurrency: DefaultFanoutConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log = log.WithField("component", "hub")
	h := &Hub{
		clock:  o.clock,
		logger: log,
		opts:   o,
	}
	h.registry = NewRegistry(o.clock, log)
	h.heartbeat = NewHeartbeat(o.clock, h)
	h.reaper = NewReaper(h.registry, o.clock, log)
	return h
}

// Start launches the heartbeat and the reaper.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.validate(); err != nil {
		return err
	}

	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrHubRunning
	}

	h.heartbeat.Start(h.opts.heartbeatInterval)
	h.reaper.Start(h.opts.reapInterval, h.opts.staleThreshold)
	h.running = true

	h.logger.WithContext(ctx).Infof(
		"Hub started (heartbeat %s, stale after %s, sweep every %s)",
		h.opts.heartbeatInterval, h.opts.staleThreshold, h.opts.reapInterval,
	)
	return nil
}

// Stop halts the timers and closes every registered connection.
// New connections are refused from the moment Stop is called.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return nil
	}
	h.running = false

	h.heartbeat.Stop()
	h.reaper.Stop()

	closed := 0
	h.registry.ForEach(func(id string, _ *Entry) {
		if h.registry.Unregister(id) {
			closed++
			metrics.Disconnections.WithLabelValues(metrics.ReasonShutdown).Inc()
		}
	})

	h.logger.WithContext(ctx).Infof("Hub stopped, closed %d connections", closed)
	return nil
}

// IsRunning returns true between Start and Stop.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// Accept registers w and sends it the "connected" acknowledgement before any
// other event can reach it. It returns the assigned connection id.
func (h *Hub) Accept(w Writer, transport, remoteAddress string) (string, error) {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()

	if !h.running {
		return "", ErrHubNotRunning
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	id := h.registry.Register(w, transport, remoteAddress)
	entry, _ := h.registry.Get(id)

	frame, err := Frame(EventConnected, ConnectedPayload{
		ClientID:  id,
		Message:   connectedMessage,
		Timestamp: Timestamp(h.clock.Now()),
	}, "")
	if err == nil {
		err = h.deliver(entry, frame)
	}
	if err != nil {
		h.handleFailure(id, err)
		return "", fmt.Errorf("acknowledge connection %s: %w", id, err)
	}

	metrics.ConnectionsAccepted.WithLabelValues(transport).Inc()
	h.logger.Infof("Connection %s registered (transport: %s, remote: %s, total: %d)",
		id, transport, remoteAddress, h.registry.Count())
	return id, nil
}

// Unregister removes a connection and closes its writer. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	if h.registry.Unregister(id) {
		metrics.Disconnections.WithLabelValues(metrics.ReasonClientGone).Inc()
		h.logger.Debugf("Connection %s unregistered (total: %d)", id, h.registry.Count())
	}
}

// Broadcast sends eventName with payload to every registered connection and
// returns the number of successful deliveries.
func (h *Hub) Broadcast(eventName string, payload any) int {
	return h.BroadcastEvent(Event{Name: eventName, Payload: payload})
}

// BroadcastEvent frames event once and writes the same bytes to every connection.
func (h *Hub) BroadcastEvent(event Event) int {
	frame, err := FrameEvent(event)
	if err != nil {
		h.dropEvent(event.Name, err)
		return 0
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	start := time.Now()
	entries := h.registry.snapshot()
	failures := make([]error, len(entries))

	var eg errgroup.Group
	eg.SetLimit(h.opts.fanoutConcurrency)
	for i, entry := range entries {
		eg.Go(func() error {
			failures[i] = h.deliver(entry, frame)
			return nil
		})
	}
	_ = eg.Wait()

	delivered := 0
	for i, entry := range entries {
		if failures[i] != nil {
			h.handleFailure(entry.id, failures[i])
			continue
		}
		delivered++
	}

	metrics.Broadcasts.WithLabelValues(metrics.EventLabel(event.Name)).Inc()
	metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	if event.Name != EventPing {
		h.logger.Debugf("Broadcasted %s to %d/%d connections", event.Name, delivered, len(entries))
	}
	return delivered
}

// Unicast sends eventName with payload to connection id only. It returns
// false when the id is unknown or the write failed.
func (h *Hub) Unicast(id, eventName string, payload any) bool {
	return h.UnicastEvent(id, Event{Name: eventName, Payload: payload})
}

// UnicastEvent is Unicast for a full Event.
func (h *Hub) UnicastEvent(id string, event Event) bool {
	frame, err := FrameEvent(event)
	if err != nil {
		h.dropEvent(event.Name, err)
		return false
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	entry, exists := h.registry.Get(id)
	if !exists {
		return false
	}

	start := time.Now()
	defer func() { metrics.FanoutDuration.Observe(time.Since(start).Seconds()) }()

	if err := h.deliver(entry, frame); err != nil {
		h.handleFailure(id, err)
		return false
	}
	return true
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// Connections describes every registered connection.
func (h *Hub) Connections() []EntryInfo {
	return h.registry.Snapshot()
}

// deliver writes frame to one entry. A panicking writer counts as a failed write.
func (h *Hub) deliver(entry *Entry, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DeliveryPanics.Inc()
			err = fmt.Errorf("writer panic: %v", r)
		}
		if err != nil {
			metrics.Deliveries.WithLabelValues("failed").Inc()
		}
	}()

	if _, err = entry.writer.Write(frame); err != nil {
		return err
	}

	entry.touch(h.clock.Now())
	metrics.Deliveries.WithLabelValues("success").Inc()
	return nil
}

func (h *Hub) handleFailure(id string, err error) {
	if IsClientGone(err) {
		h.logger.Debugf("Connection %s went away: %v", id, err)
	} else {
		h.logger.Errorf("Failed to deliver to connection %s: %v", id, err)
	}

	if h.registry.Unregister(id) {
		metrics.Disconnections.WithLabelValues(metrics.ReasonWriteFailed).Inc()
	}
}

func (h *Hub) dropEvent(eventName string, err error) {
	metrics.EncodingFailures.Inc()
	h.logger.Errorf("Dropping event %q: %v", eventName, err)
}

func (h *Hub) validate() error {
	o := h.opts
	switch {
	case o.heartbeatInterval <= 0, o.reapInterval <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidTiming)
	case o.reapInterval <= o.heartbeatInterval:
		return fmt.Errorf("%w: reap interval %s must be longer than the heartbeat interval %s",
			ErrInvalidTiming, o.reapInterval, o.heartbeatInterval)
	case o.staleThreshold < 2*o.heartbeatInterval:
		return fmt.Errorf("%w: stale threshold %s is below twice the heartbeat interval %s",
			ErrInvalidTiming, o.staleThreshold, o.heartbeatInterval)
	case o.fanoutConcurrency <= 0:
		return fmt.Errorf("%w: fan-out concurrency must be positive", ErrInvalidTiming)
	}
	return nil
}
