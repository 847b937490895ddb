package engine

import (
	"log/slog"
	"math"

	"github.com/verte-zerg/gymtrack/internal/model"
)

const boundaryEpsilon = 1e-9

// nextBoundary returns the smallest step multiple above every recorded key
// that does not exceed the total. When the total is not a step multiple it is
// the terminal boundary.
func nextBoundary(p *model.SubjectProgress, target model.IntervalTarget) (float64, bool) {
	step := target.StepSize
	total := target.Total()
	if step <= 0 || total <= 0 {
		return 0, false
	}
	var from float64
	if highest, ok := p.MaxRecorded(); ok {
		from = highest
	}
	if from > total || model.SameUnits(from, total) {
		return 0, false
	}
	candidate := (math.Floor(from/step+boundaryEpsilon) + 1) * step
	if model.SameUnits(candidate, total) || candidate > total {
		return total, true
	}
	return candidate, true
}

// record handles one tap in interval mode.
func record(p *model.SubjectProgress, target model.IntervalTarget, now int64, log *slog.Logger) outcome {
	switch p.Status {
	case model.StatusCompleted:
		return outcomeNone
	case model.StatusPaused:
		resume(p, now, log)
		return outcomeApplied
	case model.StatusIdle, model.StatusInProgress:
	}

	boundary, ok := nextBoundary(p, target)
	if !ok {
		return outcomeNone
	}
	if p.IntervalStartMs > now {
		// The clock was reset after the interval started.
		log.Debug("interval start ahead of clock, restarting interval", "interval_start_ms", p.IntervalStartMs, "elapsed_ms", now)
		p.IntervalStartMs = now
	}
	p.Status = model.StatusInProgress
	p.Recorded[boundary] = now - p.IntervalStartMs

	if model.SameUnits(boundary, target.Total()) {
		p.Status = model.StatusCompleted
		return outcomeCompleted
	}
	if model.IsMultiple(boundary, target.UnitsPerInterval) {
		p.Status = model.StatusPaused
		p.Pause = model.PauseState{IsPaused: true, PauseStartedAtMs: model.Int64Ptr(now)}
		p.IntervalCounter++
	}
	return outcomeApplied
}

// resume ends a pause. A pause that started ahead of the clock, after a
// clock reset, counts as zero.
func resume(p *model.SubjectProgress, now int64, log *slog.Logger) {
	started := now
	switch {
	case p.Pause.PauseStartedAtMs == nil:
		log.Debug("paused subject has no pause start, counting zero pause")
	case *p.Pause.PauseStartedAtMs > now:
		log.Debug("pause start ahead of clock, counting zero pause", "pause_started_ms", *p.Pause.PauseStartedAtMs, "elapsed_ms", now)
	default:
		started = *p.Pause.PauseStartedAtMs
	}
	p.PauseDurations = append(p.PauseDurations, now-started)
	p.Pause = model.PauseState{}
	p.IntervalStartMs = now
	p.Status = model.StatusInProgress
}

// redo clears the highest recorded checkpoint. An intermediate interval end
// is kept since the interval counter never goes back.
func redo(p *model.SubjectProgress, target model.IntervalTarget) outcome {
	if p.Status == model.StatusPaused {
		return outcomeNone
	}
	highest, ok := p.MaxRecorded()
	if !ok {
		return outcomeNone
	}
	final := model.SameUnits(highest, target.Total())
	if !final && model.IsMultiple(highest, target.UnitsPerInterval) {
		return outcomeNone
	}
	delete(p.Recorded, highest)
	p.Status = model.StatusInProgress
	return outcomeApplied
}
