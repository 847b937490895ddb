// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"sort"

	"github.com/verte-zerg/gymtrack/internal/model"
)

// PaceUnit is the canonical distance the average pace is reported against.
const PaceUnit = 50.0

// IntervalStats summarizes a subject in interval mode.
type IntervalStats struct {
	BestIntervalMs     int64
	HasBest            bool
	AverageIntervalMs  float64
	AveragePerUnitMs   float64
	CompletedIntervals int
	TotalUnits         float64
	RecordedCount      int
	TotalPauseMs       int64
}

// CheckpointStats summarizes a subject in checkpoint-list mode.
type CheckpointStats struct {
	Validated       int
	Failed          int
	Searching       int
	BestSearchMs    int64
	HasBest         bool
	AverageSearchMs float64
	Score           int
}

// ObservationStats summarizes a subject's observation sheet.
type ObservationStats struct {
	Observed int
	Score    float64
}

// SubjectStatistics is derived on demand and never stored.
type SubjectStatistics struct {
	Kind        model.EngineKind
	Interval    *IntervalStats
	Checkpoint  *CheckpointStats
	Observation *ObservationStats
}

// Compute derives statistics for one subject from scratch.
func Compute(kind model.EngineKind, p *model.SubjectProgress, cfg model.SubjectConfig) SubjectStatistics {
	out := SubjectStatistics{Kind: kind}
	if p == nil {
		p = model.NewSubjectProgress(cfg.SubjectID)
	}
	switch kind {
	case model.EngineInterval:
		target := model.IntervalTarget{}
		if cfg.Interval != nil {
			target = *cfg.Interval
		}
		s := ComputeInterval(p, target)
		out.Interval = &s
	case model.EngineCheckpoint:
		s := ComputeCheckpoints(p, cfg)
		out.Checkpoint = &s
	case model.EngineStandard, model.EngineCustom:
		s := ComputeObservations(p)
		out.Observation = &s
	}
	return out
}

// ComputeInterval derives interval statistics. Interval-end checkpoints are
// keys that are whole multiples of the units per interval.
func ComputeInterval(p *model.SubjectProgress, target model.IntervalTarget) IntervalStats {
	var s IntervalStats
	s.RecordedCount = len(p.Recorded)
	for _, d := range p.PauseDurations {
		s.TotalPauseMs += d
	}
	var sum int64
	for key, elapsed := range p.Recorded {
		if key > s.TotalUnits {
			s.TotalUnits = key
		}
		if !model.IsMultiple(key, target.UnitsPerInterval) {
			continue
		}
		s.CompletedIntervals++
		sum += elapsed
		if !s.HasBest || elapsed < s.BestIntervalMs {
			s.BestIntervalMs = elapsed
			s.HasBest = true
		}
	}
	if s.CompletedIntervals > 0 {
		s.AverageIntervalMs = float64(sum) / float64(s.CompletedIntervals)
		units := target.UnitsPerInterval * float64(s.CompletedIntervals)
		if units > 0 {
			s.AveragePerUnitMs = float64(sum) / units * PaceUnit
		}
	}
	return s
}

// Split is the time between two consecutive checkpoints of one interval.
type Split struct {
	Units   float64
	SplitMs int64
}

// Splits converts interval-relative checkpoint times into per-step splits.
// The first checkpoint of each interval splits from the interval start.
func Splits(p *model.SubjectProgress, target model.IntervalTarget) []Split {
	keys := model.SortedKeys(p.Recorded)
	out := make([]Split, 0, len(keys))
	var prev int64
	for _, k := range keys {
		v := p.Recorded[k]
		out = append(out, Split{Units: k, SplitMs: v - prev})
		prev = v
		if model.IsMultiple(k, target.UnitsPerInterval) {
			prev = 0
		}
	}
	return out
}

// ComputeCheckpoints derives checkpoint-list statistics.
func ComputeCheckpoints(p *model.SubjectProgress, cfg model.SubjectConfig) CheckpointStats {
	var s CheckpointStats
	var sum int64
	for _, def := range cfg.Checkpoints {
		b := p.Balise(def.ID)
		s.Failed += b.Errors
		switch b.Status {
		case model.BaliseValidated:
			s.Validated++
			s.Score += def.Tier
			if b.DurationMs != nil {
				d := *b.DurationMs
				sum += d
				if !s.HasBest || d < s.BestSearchMs {
					s.BestSearchMs = d
					s.HasBest = true
				}
			}
		case model.BaliseSearching:
			s.Searching++
		case model.BaliseUnvisited, model.BaliseFailed:
		}
	}
	if s.Validated > 0 {
		s.AverageSearchMs = float64(sum) / float64(s.Validated)
	}
	return s
}

// ComputeObservations derives a score from the observation sheet.
func ComputeObservations(p *model.SubjectProgress) ObservationStats {
	s := ObservationStats{Observed: len(p.Observations)}
	for _, v := range p.Observations {
		s.Score += model.ObservationScore(v)
	}
	return s
}

// Metrics flattens statistics into the metric map of a result record.
func (s SubjectStatistics) Metrics() map[string]float64 {
	m := map[string]float64{}
	if is := s.Interval; is != nil {
		if is.HasBest {
			m["best_interval_ms"] = float64(is.BestIntervalMs)
		}
		m["average_interval_ms"] = round1(is.AverageIntervalMs)
		m["average_per_50_ms"] = round1(is.AveragePerUnitMs)
		m["completed_intervals"] = float64(is.CompletedIntervals)
		m["total_units"] = is.TotalUnits
		m["recorded_checkpoints"] = float64(is.RecordedCount)
		m["total_pause_ms"] = float64(is.TotalPauseMs)
	}
	if cs := s.Checkpoint; cs != nil {
		m["validated"] = float64(cs.Validated)
		m["failed_attempts"] = float64(cs.Failed)
		if cs.HasBest {
			m["best_search_ms"] = float64(cs.BestSearchMs)
		}
		m["average_search_ms"] = round1(cs.AverageSearchMs)
		m["score"] = float64(cs.Score)
	}
	if obs := s.Observation; obs != nil {
		m["observed"] = float64(obs.Observed)
		m["score"] = obs.Score
	}
	return m
}

// MetricNames returns metric keys in a stable order.
func MetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
