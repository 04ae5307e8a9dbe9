// Package poll decides when polling happens: it tracks consecutive
// failures, enters and exits the cooldown window, and owns the delay until
// the next cycle. It performs no I/O itself; callers report outcomes.
package poll

import (
	"sync"
	"time"
)

// Config holds the timing parameters. Callers supply them; nothing here is
// hardcoded.
type Config struct {
	Interval         time.Duration // normal poll interval
	FailureThreshold int           // consecutive failures before cooldown
	Cooldown         time.Duration // how long polling stays suspended
}

// Event is an outcome or timer signal fed into the state machine.
type Event int

const (
	// EventSuccess is a completed cycle with good data.
	EventSuccess Event = iota
	// EventFailure is a cycle that ended in a fetch failure.
	EventFailure
	// EventTick is a timer check that may expire the cooldown window.
	EventTick
)

// State is the cooldown state. There is exactly one instance per process,
// owned by a Controller; everything else reads snapshots.
type State struct {
	ConsecutiveFailures int
	CooldownStartedAt   time.Time // zero when not in cooldown
	Polling             bool      // a cycle is currently in flight
}

// InCooldown reports whether polling is suspended.
func (s State) InCooldown() bool { return !s.CooldownStartedAt.IsZero() }

// Next is the pure transition function. Success unconditionally resets the
// failure counter and clears any cooldown immediately. Failure increments
// the counter and starts the cooldown the moment the threshold is reached,
// not before. A tick expires the cooldown once the window has elapsed,
// which also resets the counter.
func Next(s State, ev Event, cfg Config, now time.Time) State {
	switch ev {
	case EventSuccess:
		s.ConsecutiveFailures = 0
		s.CooldownStartedAt = time.Time{}

	case EventFailure:
		s.ConsecutiveFailures++
		if s.ConsecutiveFailures >= cfg.FailureThreshold && !s.InCooldown() {
			s.CooldownStartedAt = now
		}

	case EventTick:
		if s.InCooldown() && now.Sub(s.CooldownStartedAt) >= cfg.Cooldown {
			s.ConsecutiveFailures = 0
			s.CooldownStartedAt = time.Time{}
		}
	}
	return s
}

// Controller owns the single cooldown state and serializes all mutation.
type Controller struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	state   State
	paused  bool // focus lost: timer suppressed entirely
	pending bool // a poll was requested while a cycle was in flight
}

// New returns a controller. now may be nil, in which case time.Now is used.
func New(cfg Config, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{cfg: cfg, now: now}
}

// SetInterval changes the poll interval for subsequent scheduling.
func (c *Controller) SetInterval(d time.Duration) {
	c.mu.Lock()
	if d > 0 {
		c.cfg.Interval = d
	}
	c.mu.Unlock()
}

// TryBegin attempts to start a cycle. It returns false while paused, while
// another cycle is in flight, or while the cooldown window is still open.
// An elapsed cooldown is cleared here, resuming normal polling.
func (c *Controller) TryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused || c.state.Polling {
		return false
	}

	c.state = Next(c.state, EventTick, c.cfg, c.now())
	if c.state.InCooldown() {
		return false
	}

	c.state.Polling = true
	return true
}

// Finish records the outcome of the in-flight cycle and reports whether a
// coalesced poll request arrived while it ran.
func (c *Controller) Finish(failed bool) (pendingPoll bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Polling = false
	ev := EventSuccess
	if failed {
		ev = EventFailure
	}
	c.state = Next(c.state, ev, c.cfg, c.now())

	pendingPoll = c.pending
	c.pending = false
	return pendingPoll
}

// RequestPoll asks for an immediate cycle, e.g. on window refocus. If a
// cycle is in flight the request is coalesced into a single pending poll
// consumed by Finish; the return value says whether the caller should start
// a cycle right now.
func (c *Controller) RequestPoll() (startNow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Polling {
		c.pending = true
		return false
	}
	return true
}

// Pause suspends the timer entirely, e.g. while the window is unfocused.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume lifts a pause. The return value tells the caller what to do next:
// poll immediately when active, or keep showing the live countdown when
// still in cooldown.
func (c *Controller) Resume() (pollNow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paused = false
	c.state = Next(c.state, EventTick, c.cfg, c.now())
	return !c.state.InCooldown()
}

// NextDelay returns how long to wait before the next poll attempt: the
// remaining cooldown while suspended, otherwise the normal interval.
func (c *Controller) NextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining, ok := c.cooldownRemainingLocked(); ok {
		return remaining
	}
	return c.cfg.Interval
}

// CooldownRemaining returns the time left in the cooldown window, if any.
func (c *Controller) CooldownRemaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldownRemainingLocked()
}

func (c *Controller) cooldownRemainingLocked() (time.Duration, bool) {
	if !c.state.InCooldown() {
		return 0, false
	}
	remaining := c.cfg.Cooldown - c.now().Sub(c.state.CooldownStartedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
