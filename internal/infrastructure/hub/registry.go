package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"go-newsletter-sse/internal/infrastructure/logger"
)

// Transport names recorded on entries.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Entry is one open streaming session. The writer is owned by the entry;
// nothing outside the hub writes to it.
type Entry struct {
	id            string
	writer        Writer
	transport     string
	remoteAddress string
	connectedAt   time.Time

	// unix nanos of the last successful write
	lastActivity atomic.Int64
}

func (e *Entry) ID() string              { return e.id }
func (e *Entry) Transport() string       { return e.transport }
func (e *Entry) RemoteAddress() string   { return e.remoteAddress }
func (e *Entry) ConnectedAt() time.Time  { return e.connectedAt }
func (e *Entry) LastActivity() time.Time { return time.Unix(0, e.lastActivity.Load()) }
func (e *Entry) touch(t time.Time)       { e.lastActivity.Store(t.UnixNano()) }

// EntryInfo is a copy of an entry's metadata, safe to hand out.
type EntryInfo struct {
	ID            string    `json:"id"`
	Transport     string    `json:"transport"`
	RemoteAddress string    `json:"remoteAddress,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastActivity  time.Time `json:"lastActivity"`
}

// Registry is the authoritative set of open connections.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	counter atomic.Uint64
	clock   clockwork.Clock
	logger  logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock, log logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		clock:   clock,
		logger:  log,
	}
}

// Register stores writer under a fresh id and returns it.
func (r *Registry) Register(w Writer, transport, remoteAddress string) string {
	now := r.clock.Now()
	id := fmt.Sprintf("client_%d_%d", r.counter.Add(1), now.UnixMilli())

	entry := &Entry{
		id:            id,
		writer:        w,
		transport:     transport,
		remoteAddress: remoteAddress,
		connectedAt:   now,
	}
	entry.touch(now)

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()

	return id
}

// Unregister removes id and closes its writer. It reports whether an entry
// was removed; unknown ids are a no-op.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	entry, exists := r.entries[id]
	if exists {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}

	// The writer may block until an in-flight write finishes, so it is closed outside the lock.
	if err := entry.writer.Close(); err != nil && !IsClientGone(err) {
		r.logger.Warnf("Failed to close connection %s: %v", id, err)
	}
	return true
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	return entry, exists
}

// ForEach calls visit for every entry of a point-in-time snapshot.
// visit may unregister entries, including the one it is visiting.
func (r *Registry) ForEach(visit func(id string, entry *Entry)) {
	for _, entry := range r.snapshot() {
		visit(entry.id, entry)
	}
}

// Snapshot returns a copy of every entry's metadata.
func (r *Registry) Snapshot() []EntryInfo {
	entries := r.snapshot()
	infos := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, EntryInfo{
			ID:            e.id,
			Transport:     e.transport,
			RemoteAddress: e.remoteAddress,
			ConnectedAt:   e.connectedAt,
			LastActivity:  e.LastActivity(),
		})
	}
	return infos
}

// Count returns the number of registered entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) snapshot() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	return entries
}
