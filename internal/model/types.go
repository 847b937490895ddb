// Package model defines shared data structures.
package model

import (
	"math"
	"sort"
	"time"
)

// EngineKind selects the engine that drives an activity.
type EngineKind string

const (
	EngineStandard   EngineKind = "standard"
	EngineInterval   EngineKind = "interval"
	EngineCheckpoint EngineKind = "checkpoint"
	EngineCustom     EngineKind = "custom"
)

// ParseEngineKind maps a configuration string onto a known engine kind.
func ParseEngineKind(s string) (EngineKind, bool) {
	switch EngineKind(s) {
	case EngineStandard, EngineInterval, EngineCheckpoint, EngineCustom:
		return EngineKind(s), true
	default:
		return "", false
	}
}

// Status is the lifecycle state of one subject.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// BaliseStatus is the state of one (subject, checkpoint) pair in checkpoint-list mode.
type BaliseStatus string

const (
	BaliseUnvisited BaliseStatus = "unvisited"
	BaliseSearching BaliseStatus = "searching"
	BaliseValidated BaliseStatus = "validated"
	BaliseFailed    BaliseStatus = "failed"
)

// RosterEntry is one line of the class roster.
type RosterEntry struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	GroupLabel  string `json:"group_label,omitempty"`
}

// CheckpointDefinition is a named waypoint of a checkpoint list.
type CheckpointDefinition struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
	Tier  int    `json:"tier" validate:"min=1"`
}

// IntervalTarget describes a distance/rep target split into intervals.
type IntervalTarget struct {
	UnitsPerInterval float64 `json:"units_per_interval" validate:"gt=0"`
	IntervalCount    int     `json:"interval_count" validate:"min=1"`
	StepSize         float64 `json:"step_size" validate:"gt=0"`
}

// Total returns the subject's total target in units.
func (t IntervalTarget) Total() float64 {
	return t.UnitsPerInterval * float64(t.IntervalCount)
}

// SubjectConfig is the per-subject tracking configuration.
type SubjectConfig struct {
	SubjectID   string                 `json:"subject_id" validate:"required"`
	Interval    *IntervalTarget        `json:"interval,omitempty"`
	Checkpoints []CheckpointDefinition `json:"checkpoints,omitempty" validate:"omitempty,dive"`
}

// Checkpoint returns the definition with the given id.
func (c SubjectConfig) Checkpoint(id string) (CheckpointDefinition, bool) {
	for _, def := range c.Checkpoints {
		if def.ID == id {
			return def, true
		}
	}
	return CheckpointDefinition{}, false
}

// Criterion is one observation criterion of a standard or custom activity.
type Criterion struct {
	ID      string          `json:"id" validate:"required"`
	Label   string          `json:"label"`
	Kind    ObservationKind `json:"kind" validate:"required,oneof=boolean counter rating choice coordinate complex"`
	Max     int             `json:"max,omitempty" validate:"min=0"`
	Choices []string        `json:"choices,omitempty"`
}

// Activity is the instructor-side definition of one tracked activity.
type Activity struct {
	ID            string
	Name          string
	Kind          EngineKind
	Interval      IntervalTarget
	Checkpoints   []CheckpointDefinition
	Criteria      []Criterion
	PenaltyBaseMs int64
}

// DefaultConfig builds the configuration a new subject starts with.
func (a Activity) DefaultConfig(subjectID string) SubjectConfig {
	cfg := SubjectConfig{SubjectID: subjectID}
	switch a.Kind {
	case EngineInterval:
		target := a.Interval
		cfg.Interval = &target
	case EngineCheckpoint:
		cfg.Checkpoints = append([]CheckpointDefinition(nil), a.Checkpoints...)
	case EngineStandard, EngineCustom:
	}
	return cfg
}

// ResultRecord is emitted to reporting collaborators.
type ResultRecord struct {
	ID          string             `json:"id"`
	SubjectID   string             `json:"subject_id"`
	ActivityID  string             `json:"activity_id"`
	EngineKind  EngineKind         `json:"engine_kind"`
	Metrics     map[string]float64 `json:"metrics"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Day is the calendar day used for result upserts.
func (r ResultRecord) Day() string {
	return r.CompletedAt.Format("2006-01-02")
}

const unitEpsilon = 1e-9

// IsMultiple reports whether value is a whole multiple of step.
func IsMultiple(value, step float64) bool {
	if step <= 0 {
		return false
	}
	q := value / step
	return math.Abs(q-math.Round(q)) < unitEpsilon*math.Max(1, math.Abs(q))
}

// SameUnits compares two unit values with float tolerance.
func SameUnits(a, b float64) bool {
	return math.Abs(a-b) < unitEpsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// SortedKeys returns the keys of a checkpoint map in ascending order.
func SortedKeys(m map[float64]int64) []float64 {
	keys := make([]float64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
