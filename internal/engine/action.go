// Package engine runs the per-subject state machines of a live session.
package engine

import "github.com/verte-zerg/gymtrack/internal/model"

// Action is one instructor command. It is replayed on every member of the
// anchor subject's group.
type Action interface {
	Name() string
	needsClock() bool
}

// Record records the next pending checkpoint, or resumes a paused subject.
type Record struct{}

// ToggleSearch starts or cancels the search of a checkpoint.
type ToggleSearch struct {
	Checkpoint string
}

// Resolve ends a search as validated or failed.
type Resolve struct {
	Checkpoint string
	Success    bool
}

// Redo clears the last recorded checkpoint so it can be taken again.
type Redo struct{}

// ResetSubject reinitializes a subject's progress.
type ResetSubject struct{}

// Observe stores one criterion value on the observation sheet.
type Observe struct {
	Criterion string
	Value     model.ObservationValue
}

func (Record) Name() string       { return "record" }
func (ToggleSearch) Name() string { return "toggle_search" }
func (Resolve) Name() string      { return "resolve" }
func (Redo) Name() string         { return "redo" }
func (ResetSubject) Name() string { return "reset_subject" }
func (Observe) Name() string      { return "observe" }

func (Record) needsClock() bool       { return true }
func (ToggleSearch) needsClock() bool { return true }
func (Resolve) needsClock() bool      { return true }
func (Redo) needsClock() bool         { return false }
func (ResetSubject) needsClock() bool { return false }
func (Observe) needsClock() bool      { return false }

// outcome is what one action did to one subject.
type outcome int

const (
	outcomeNone outcome = iota
	outcomeApplied
	outcomeCompleted
	outcomeValidated
)

func (o outcome) emitsResult() bool {
	return o == outcomeCompleted || o == outcomeValidated
}
