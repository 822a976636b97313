package hub

import (
	"sync"
	"time"
)

// Throttle coalesces rapid calls into a leading-edge fire followed by one
// trailing-edge fire per window. Leaderboard updates ride on this so a burst
// of submissions produces at most two broadcasts per window, the last one
// carrying the freshest state.
type Throttle struct {
	window time.Duration

	mu       sync.Mutex
	lastFire time.Time
	pending  func()
	timer    *time.Timer
	stopped  bool
}

func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{window: window}
}

// Do runs f now when the window is open, otherwise stages it for the
// trailing edge, replacing any previously staged call.
func (t *Throttle) Do(f func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := time.Now()
	if t.timer == nil && now.Sub(t.lastFire) >= t.window {
		t.lastFire = now
		t.mu.Unlock()
		f()
		return
	}

	t.pending = f
	if t.timer == nil {
		wait := t.window - now.Sub(t.lastFire)
		if wait < 0 {
			wait = t.window
		}
		t.timer = time.AfterFunc(wait, t.fireTrailing)
	}
	t.mu.Unlock()
}

func (t *Throttle) fireTrailing() {
	t.mu.Lock()
	f := t.pending
	t.pending = nil
	t.timer = nil
	t.lastFire = time.Now()
	stopped := t.stopped
	t.mu.Unlock()

	if f != nil && !stopped {
		f()
	}
}

// Stop cancels any staged trailing fire.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
