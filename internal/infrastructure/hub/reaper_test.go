package hub

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaper_SweepRemovesOnlyStaleEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock, &mockLogger{})
	reaper := NewReaper(registry, clock, &mockLogger{})

	staleWriter := &recordingWriter{}
	stale := registry.Register(staleWriter, TransportSSE, "")
	fresh := registry.Register(&recordingWriter{}, TransportSSE, "")

	clock.Advance(91 * time.Second)
	entry, _ := registry.Get(fresh)
	entry.touch(clock.Now())

	assert.Equal(t, 1, reaper.Sweep(90*time.Second))

	_, ok := registry.Get(stale)
	assert.False(t, ok)
	_, ok = registry.Get(fresh)
	assert.True(t, ok)
	assert.Equal(t, 1, staleWriter.Closes())
}

func TestReaper_JustPastThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock, &mockLogger{})
	reaper := NewReaper(registry, clock, &mockLogger{})

	idle := registry.Register(&recordingWriter{}, TransportSSE, "")
	clock.Advance(90*time.Second + time.Millisecond)
	active := registry.Register(&recordingWriter{}, TransportSSE, "")

	assert.Equal(t, 1, reaper.Sweep(90*time.Second))
	_, ok := registry.Get(idle)
	assert.False(t, ok)
	_, ok = registry.Get(active)
	assert.True(t, ok)
}

func TestReaper_ThresholdIsExclusive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock, &mockLogger{})
	reaper := NewReaper(registry, clock, &mockLogger{})

	registry.Register(&recordingWriter{}, TransportSSE, "")
	clock.Advance(90 * time.Second)

	assert.Zero(t, reaper.Sweep(90*time.Second))
	assert.Equal(t, 1, registry.Count())
}

func TestReaper_RunsPeriodically(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock, &mockLogger{})
	reaper := NewReaper(registry, clock, &mockLogger{})

	registry.Register(&recordingWriter{}, TransportSSE, "")

	reaper.Start(time.Minute, 90*time.Second)
	defer reaper.Stop()

	clock.Advance(time.Minute)
	// Idle for 60s: not yet stale, the first sweep keeps it.
	assert.Equal(t, 1, registry.Count())

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return registry.Count() == 0 }, time.Second, 5*time.Millisecond)
}
