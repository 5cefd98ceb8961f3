package hub

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// periodicTask runs a function on every tick of a clock ticker until halted.
// start and halt are idempotent.
type periodicTask struct {
	clock clockwork.Clock

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newPeriodicTask(clock clockwork.Clock) *periodicTask {
	return &periodicTask{clock: clock}
}

// start reports false when the task was already running.
func (t *periodicTask) start(interval time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		return false
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	// Created before returning so a fake clock sees the ticker immediately.
	ticker := t.clock.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				fn()
			case <-stop:
				return
			}
		}
	}()

	t.stop, t.done = stop, done
	return true
}

// halt stops the ticker and waits for an in-flight fn to return.
// It reports false when the task was not running.
func (t *periodicTask) halt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop == nil {
		return false
	}

	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
	return true
}

func (t *periodicTask) running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}
