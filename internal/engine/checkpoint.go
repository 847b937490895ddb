package engine

import (
	"log/slog"

	"github.com/verte-zerg/gymtrack/internal/model"
)

func toggleSearch(p *model.SubjectProgress, cfg model.SubjectConfig, id string, now int64) outcome {
	if _, ok := cfg.Checkpoint(id); !ok {
		return outcomeNone
	}
	b := p.Balise(id)
	switch b.Status {
	case model.BaliseSearching:
		b.Status = model.BaliseUnvisited
		b.StartedAtMs = nil
	case model.BaliseUnvisited, model.BaliseFailed:
		b.Status = model.BaliseSearching
		b.StartedAtMs = model.Int64Ptr(now)
	case model.BaliseValidated:
		return outcomeNone
	}
	p.Balises[id] = b
	if p.Status == model.StatusIdle {
		p.Status = model.StatusInProgress
	}
	return outcomeApplied
}

// resolve ends a search. A failure keeps no duration.
func resolve(p *model.SubjectProgress, cfg model.SubjectConfig, id string, success bool, now int64, log *slog.Logger) outcome {
	if _, ok := cfg.Checkpoint(id); !ok {
		return outcomeNone
	}
	b := p.Balise(id)
	if b.Status != model.BaliseSearching || b.StartedAtMs == nil {
		return outcomeNone
	}
	if !success {
		b.Status = model.BaliseFailed
		b.StartedAtMs = nil
		b.DurationMs = nil
		b.Errors++
		p.ErrorCount++
		p.Balises[id] = b
		return outcomeApplied
	}
	duration := now - *b.StartedAtMs
	if duration < 0 {
		log.Debug("search start ahead of clock, counting zero duration", "checkpoint", id, "started_ms", *b.StartedAtMs, "elapsed_ms", now)
		duration = 0
	}
	b.Status = model.BaliseValidated
	b.DurationMs = model.Int64Ptr(duration)
	b.StartedAtMs = nil
	p.Balises[id] = b
	if allValidated(p, cfg) {
		p.Status = model.StatusCompleted
	}
	return outcomeValidated
}

func allValidated(p *model.SubjectProgress, cfg model.SubjectConfig) bool {
	if len(cfg.Checkpoints) == 0 {
		return false
	}
	for _, def := range cfg.Checkpoints {
		if p.Balise(def.ID).Status != model.BaliseValidated {
			return false
		}
	}
	return true
}
