package model

import (
	"encoding/json"
	"fmt"
)

// PauseState tracks an in-flight pause between intervals.
type PauseState struct {
	IsPaused         bool   `json:"is_paused"`
	PauseStartedAtMs *int64 `json:"pause_started_at_ms,omitempty"`
}

// BaliseState is the per-checkpoint state in checkpoint-list mode.
type BaliseState struct {
	Status      BaliseStatus `json:"status"`
	StartedAtMs *int64       `json:"started_at_ms,omitempty"`
	DurationMs  *int64       `json:"duration_ms,omitempty"`
	Errors      int          `json:"errors"`
}

// SubjectProgress is the mutable tracking state of one subject.
type SubjectProgress struct {
	SubjectID       string
	Status          Status
	Recorded        map[float64]int64
	Pause           PauseState
	PauseDurations  []int64
	IntervalCounter int
	IntervalStartMs int64
	ErrorCount      int
	Balises         map[string]BaliseState
	Observations    map[string]ObservationValue
}

// NewSubjectProgress returns the initial progress of a subject.
func NewSubjectProgress(subjectID string) *SubjectProgress {
	return &SubjectProgress{
		SubjectID:       subjectID,
		Status:          StatusIdle,
		Recorded:        map[float64]int64{},
		IntervalCounter: 1,
		Balises:         map[string]BaliseState{},
		Observations:    map[string]ObservationValue{},
	}
}

// Balise returns the state of a checkpoint, defaulting to unvisited.
func (p *SubjectProgress) Balise(id string) BaliseState {
	if b, ok := p.Balises[id]; ok {
		return b
	}
	return BaliseState{Status: BaliseUnvisited}
}

// MaxRecorded returns the highest recorded checkpoint key.
func (p *SubjectProgress) MaxRecorded() (float64, bool) {
	found := false
	var maxKey float64
	for k := range p.Recorded {
		if !found || k > maxKey {
			maxKey = k
			found = true
		}
	}
	return maxKey, found
}

// Pristine reports whether the progress still holds its initial state.
func (p *SubjectProgress) Pristine() bool {
	return p.Status == StatusIdle &&
		len(p.Recorded) == 0 &&
		!p.Pause.IsPaused && p.Pause.PauseStartedAtMs == nil &&
		len(p.PauseDurations) == 0 &&
		p.IntervalCounter == 1 &&
		p.IntervalStartMs == 0 &&
		p.ErrorCount == 0 &&
		len(p.Balises) == 0 &&
		len(p.Observations) == 0
}

// Clone returns a deep copy of the progress.
func (p *SubjectProgress) Clone() *SubjectProgress {
	out := &SubjectProgress{
		SubjectID:       p.SubjectID,
		Status:          p.Status,
		Recorded:        make(map[float64]int64, len(p.Recorded)),
		Pause:           PauseState{IsPaused: p.Pause.IsPaused, PauseStartedAtMs: copyInt64(p.Pause.PauseStartedAtMs)},
		PauseDurations:  append([]int64(nil), p.PauseDurations...),
		IntervalCounter: p.IntervalCounter,
		IntervalStartMs: p.IntervalStartMs,
		ErrorCount:      p.ErrorCount,
		Balises:         make(map[string]BaliseState, len(p.Balises)),
		Observations:    make(map[string]ObservationValue, len(p.Observations)),
	}
	for k, v := range p.Recorded {
		out.Recorded[k] = v
	}
	for k, b := range p.Balises {
		out.Balises[k] = BaliseState{
			Status:      b.Status,
			StartedAtMs: copyInt64(b.StartedAtMs),
			DurationMs:  copyInt64(b.DurationMs),
			Errors:      b.Errors,
		}
	}
	for k, v := range p.Observations {
		out.Observations[k] = v
	}
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

type recordedCheckpoint struct {
	Units     float64 `json:"units"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

type progressJSON struct {
	SubjectID       string                     `json:"subject_id"`
	Status          Status                     `json:"status"`
	Recorded        []recordedCheckpoint       `json:"recorded"`
	Pause           PauseState                 `json:"pause"`
	PauseDurations  []int64                    `json:"pause_durations"`
	IntervalCounter int                        `json:"interval_counter"`
	IntervalStartMs int64                      `json:"interval_start_ms"`
	ErrorCount      int                        `json:"error_count"`
	Balises         map[string]BaliseState     `json:"balises,omitempty"`
	Observations    map[string]json.RawMessage `json:"observations,omitempty"`
}

// MarshalJSON encodes recorded checkpoints as an ordered list since JSON
// object keys cannot carry float units.
func (p *SubjectProgress) MarshalJSON() ([]byte, error) {
	out := progressJSON{
		SubjectID:       p.SubjectID,
		Status:          p.Status,
		Pause:           p.Pause,
		PauseDurations:  p.PauseDurations,
		IntervalCounter: p.IntervalCounter,
		IntervalStartMs: p.IntervalStartMs,
		ErrorCount:      p.ErrorCount,
		Balises:         p.Balises,
	}
	for _, k := range SortedKeys(p.Recorded) {
		out.Recorded = append(out.Recorded, recordedCheckpoint{Units: k, ElapsedMs: p.Recorded[k]})
	}
	if len(p.Observations) > 0 {
		out.Observations = make(map[string]json.RawMessage, len(p.Observations))
		for id, v := range p.Observations {
			raw, err := MarshalObservation(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode observation %q: %w", id, err)
			}
			out.Observations[id] = raw
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the representation written by MarshalJSON.
func (p *SubjectProgress) UnmarshalJSON(data []byte) error {
	var in progressJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = *NewSubjectProgress(in.SubjectID)
	p.Status = in.Status
	p.Pause = in.Pause
	p.PauseDurations = in.PauseDurations
	p.IntervalCounter = in.IntervalCounter
	p.IntervalStartMs = in.IntervalStartMs
	p.ErrorCount = in.ErrorCount
	for _, rc := range in.Recorded {
		p.Recorded[rc.Units] = rc.ElapsedMs
	}
	for id, b := range in.Balises {
		p.Balises[id] = b
	}
	for id, raw := range in.Observations {
		v, err := UnmarshalObservation(raw)
		if err != nil {
			return fmt.Errorf("failed to decode observation %q: %w", id, err)
		}
		p.Observations[id] = v
	}
	return nil
}
