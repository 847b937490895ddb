package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/gymtrack/internal/clock"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/registry"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

// Session owns the clock, the registry and the group table of one live
// activity. Every command holds the session lock, so a tap is one atomic
// transition for the whole group.
type Session struct {
	mu       sync.Mutex
	id       string
	activity model.Activity
	clock    *clock.Clock
	reg      *registry.Registry
	roster   []model.RosterEntry
	groups   Groups
	sink     export.Sink
	logger   *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSink sets the collaborator that receives result records.
func WithSink(sink export.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithNow sets the wall clock the session stopwatch reads.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.clock = clock.New(now)
	}
}

// NewSession returns a session with a stopped clock and an empty roster.
func NewSession(activity model.Activity, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		activity: activity,
		clock:    clock.New(nil),
		reg:      registry.New(activity),
		groups:   BuildGroups(nil),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session across snapshots.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Activity returns the activity definition.
func (s *Session) Activity() model.Activity {
	return s.activity
}

// Start starts or resumes the session clock.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Start()
	s.logger.Debug("clock started", "elapsed_ms", s.clock.Read())
}

// Pause freezes the session clock.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Pause()
	s.logger.Debug("clock paused", "elapsed_ms", s.clock.Read())
}

// ResetClock zeroes the clock. Subject progress is kept.
func (s *Session) ResetClock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Reset()
}

// ResetAll zeroes the clock and reinitializes every subject.
func (s *Session) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Reset()
	s.reg.ResetAll()
	s.logger.Info("session reset", "activity", s.activity.ID)
}

// Running reports whether the clock runs.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Running()
}

// Elapsed reads the clock without side effects.
func (s *Session) Elapsed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Read()
}

// SyncRoster applies a roster refresh and rebuilds the group table.
func (s *Session) SyncRoster(entries []model.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked(entries)
	s.logger.Debug("roster synced", "subjects", len(s.roster))
}

func (s *Session) syncLocked(entries []model.RosterEntry) {
	s.reg.Sync(entries)
	s.roster = s.roster[:0]
	for _, id := range s.reg.Active() {
		sub, _ := s.reg.Lookup(id)
		s.roster = append(s.roster, sub.Entry)
	}
	s.groups = BuildGroups(s.roster)
}

// Roster returns the active roster in order.
func (s *Session) Roster() []model.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RosterEntry(nil), s.roster...)
}

// Members returns the group of a subject.
func (s *Session) Members(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups.Members(id)
}

// SetConfig validates and stores a subject config.
func (s *Session) SetConfig(cfg model.SubjectConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reg.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to update config of %q: %w", cfg.SubjectID, err)
	}
	return nil
}

// Config returns a subject config.
func (s *Session) Config(id string) (model.SubjectConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Config(id)
}

// Apply runs action on the anchor's group with a single clock reading.
// It reports whether any member changed. Invalid commands are no-ops.
func (s *Session) Apply(ctx context.Context, anchor string, action Action) bool {
	if action == nil {
		return false
	}
	records, applied := s.apply(anchor, action)
	for _, rec := range records {
		s.emit(ctx, rec)
	}
	return applied
}

func (s *Session) apply(anchor string, action Action) ([]model.ResultRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.With("subject", anchor, "action", action.Name())
	if _, ok := s.reg.Lookup(anchor); !ok {
		log.Debug("ignoring action for unknown subject")
		return nil, false
	}
	if action.needsClock() && !s.clock.Running() {
		log.Debug("ignoring action while clock is stopped")
		return nil, false
	}

	now := s.clock.Read()
	applied := false
	var records []model.ResultRecord
	for _, id := range s.groups.Members(anchor) {
		p, ok := s.reg.Progress(id)
		if !ok {
			continue
		}
		cfg, _ := s.reg.Config(id)
		out := s.dispatch(p, cfg, action, now, log.With("member", id))
		if out == outcomeNone {
			continue
		}
		applied = true
		if out.emitsResult() {
			records = append(records, s.resultLocked(p, cfg))
		}
	}
	if !applied {
		log.Debug("action had no effect", "elapsed_ms", now)
	}
	return records, applied
}

// dispatch routes an action to the engine of the activity kind. Actions of
// another engine are ignored.
func (s *Session) dispatch(p *model.SubjectProgress, cfg model.SubjectConfig, action Action, now int64, log *slog.Logger) outcome {
	if _, ok := action.(ResetSubject); ok {
		if p.Pristine() {
			return outcomeNone
		}
		s.reg.ResetProgress(p.SubjectID)
		return outcomeApplied
	}
	switch s.activity.Kind {
	case model.EngineInterval:
		if cfg.Interval == nil {
			return outcomeNone
		}
		switch action.(type) {
		case Record:
			return record(p, *cfg.Interval, now, log)
		case Redo:
			return redo(p, *cfg.Interval)
		}
	case model.EngineCheckpoint:
		switch a := action.(type) {
		case ToggleSearch:
			return toggleSearch(p, cfg, a.Checkpoint, now)
		case Resolve:
			return resolve(p, cfg, a.Checkpoint, a.Success, now, log)
		}
	case model.EngineStandard, model.EngineCustom:
		if a, ok := action.(Observe); ok {
			return observe(p, s.activity.Criteria, a.Criterion, a.Value)
		}
	}
	return outcomeNone
}

func (s *Session) resultLocked(p *model.SubjectProgress, cfg model.SubjectConfig) model.ResultRecord {
	st := stats.Compute(s.activity.Kind, p, cfg)
	return export.ToResultRecord(s.activity.ID, s.activity.Kind, p, st, s.clock.Now())
}

func (s *Session) emit(ctx context.Context, rec model.ResultRecord) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, rec); err != nil {
		s.logger.Error("failed to emit result", "subject", rec.SubjectID, "error", err)
		return
	}
	s.logger.Info("result emitted", "subject", rec.SubjectID, "activity", rec.ActivityID)
}

// SaveResult emits the current state of a subject on demand.
func (s *Session) SaveResult(ctx context.Context, id string) (model.ResultRecord, error) {
	s.mu.Lock()
	p, ok := s.reg.Progress(id)
	if !ok {
		s.mu.Unlock()
		return model.ResultRecord{}, fmt.Errorf("failed to save result of %q: %w", id, registry.ErrUnknownSubject)
	}
	cfg, _ := s.reg.Config(id)
	rec := s.resultLocked(p, cfg)
	s.mu.Unlock()

	if s.sink == nil {
		return rec, nil
	}
	if err := s.sink.Emit(ctx, rec); err != nil {
		return rec, fmt.Errorf("failed to save result of %q: %w", id, err)
	}
	return rec, nil
}

// Progress returns a copy of a subject's progress, including removed
// subjects that still hold history.
func (s *Session) Progress(id string) (*model.SubjectProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.reg.PeekProgress(id)
	if !ok {
		if _, active := s.reg.Lookup(id); !active {
			return nil, false
		}
		return model.NewSubjectProgress(id), true
	}
	return p.Clone(), true
}

// Stats computes a subject's statistics from its current state.
func (s *Session) Stats(id string) (stats.SubjectStatistics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.reg.Config(id)
	if !ok {
		return stats.SubjectStatistics{}, false
	}
	p, _ := s.reg.PeekProgress(id)
	return stats.Compute(s.activity.Kind, p, cfg), true
}

// SearchTimer is the penalty view of one running search.
type SearchTimer struct {
	Checkpoint string
	ElapsedMs  int64
	LimitMs    int64
	Due        bool
}

// SearchTimers lists the running searches of a subject. The allowance grows
// with the number of distinct checkpoints searched at once across its group.
func (s *Session) SearchTimers(id string) []SearchTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.reg.Config(id)
	if !ok {
		return nil
	}
	p, ok := s.reg.PeekProgress(id)
	if !ok {
		return nil
	}
	searched := map[string]struct{}{}
	for _, member := range s.groups.Members(id) {
		mp, ok := s.reg.PeekProgress(member)
		if !ok {
			continue
		}
		for cp, b := range mp.Balises {
			if b.Status == model.BaliseSearching {
				searched[cp] = struct{}{}
			}
		}
	}
	searching := len(searched)
	now := s.clock.Read()
	var out []SearchTimer
	for _, def := range cfg.Checkpoints {
		b := p.Balise(def.ID)
		if b.Status != model.BaliseSearching || b.StartedAtMs == nil {
			continue
		}
		elapsed := max(now-*b.StartedAtMs, 0)
		out = append(out, SearchTimer{
			Checkpoint: def.ID,
			ElapsedMs:  elapsed,
			LimitMs:    stats.PenaltyLimitMs(s.activity.PenaltyBaseMs, def.Tier, searching),
			Due:        stats.PenaltyDue(elapsed, s.activity.PenaltyBaseMs, def.Tier, searching),
		})
	}
	return out
}

// ExportSubjects returns the active subjects in roster order for export.
func (s *Session) ExportSubjects() []export.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]export.Subject, 0, len(s.roster))
	for _, entry := range s.roster {
		cfg, ok := s.reg.Config(entry.SubjectID)
		if !ok {
			continue
		}
		p, ok := s.reg.PeekProgress(entry.SubjectID)
		if ok {
			p = p.Clone()
		} else {
			p = model.NewSubjectProgress(entry.SubjectID)
		}
		out = append(out, export.Subject{
			Entry:    entry,
			Config:   cfg,
			Progress: p,
			Stats:    stats.Compute(s.activity.Kind, p, cfg),
		})
	}
	return out
}
