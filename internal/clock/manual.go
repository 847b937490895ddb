package clock

import "time"

// Manual is a hand-driven time source for tests and replays.
type Manual struct {
	t time.Time
}

// NewManual returns a Manual time source starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{t: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	return m.t
}

// Advance moves the time source forward.
func (m *Manual) Advance(d time.Duration) {
	m.t = m.t.Add(d)
}

// AdvanceMs moves the time source forward by ms milliseconds.
func (m *Manual) AdvanceMs(ms int64) {
	m.Advance(time.Duration(ms) * time.Millisecond)
}
