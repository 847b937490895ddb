// Package clock provides the session stopwatch shared by every subject.
package clock

import "time"

// Clock is a pausable stopwatch with millisecond resolution. It is not safe
// for concurrent use; callers serialize access.
type Clock struct {
	now       func() time.Time
	running   bool
	elapsedMs int64
	anchor    time.Time
}

// State is the serializable part of a Clock.
type State struct {
	Running   bool  `json:"running"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

// New returns a stopped clock at zero. A nil now uses time.Now.
func New(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Start runs the clock from its current elapsed value. No-op if running.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.anchor = c.now()
	c.running = true
}

// Pause folds the running segment into the elapsed total. No-op if stopped.
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.elapsedMs += c.now().Sub(c.anchor).Milliseconds()
	c.anchor = time.Time{}
	c.running = false
}

// Reset stops the clock at zero. Subject data is untouched.
func (c *Clock) Reset() {
	c.elapsedMs = 0
	c.running = false
	c.anchor = time.Time{}
}

// Read returns the elapsed milliseconds without mutating the clock.
func (c *Clock) Read() int64 {
	if !c.running {
		return c.elapsedMs
	}
	return c.elapsedMs + c.now().Sub(c.anchor).Milliseconds()
}

// Running reports whether the clock is running.
func (c *Clock) Running() bool {
	return c.running
}

// Now returns the wall-clock time of the clock's time source.
func (c *Clock) Now() time.Time {
	return c.now()
}

// State captures the clock for a snapshot. A running clock is frozen at the
// current reading.
func (c *Clock) State() State {
	return State{Running: c.running, ElapsedMs: c.Read()}
}

// Restore loads a snapshot. The clock comes back stopped.
func (c *Clock) Restore(s State) {
	c.Reset()
	if s.ElapsedMs > 0 {
		c.elapsedMs = s.ElapsedMs
	}
}
