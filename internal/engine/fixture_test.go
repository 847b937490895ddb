package engine

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/clock"
	"github.com/verte-zerg/gymtrack/internal/model"
)

func swimActivity() model.Activity {
	return model.Activity{
		ID:       "swim-500",
		Name:     "Swim 500",
		Kind:     model.EngineInterval,
		Interval: model.IntervalTarget{UnitsPerInterval: 250, IntervalCount: 2, StepSize: 50},
	}
}

func orienteeringActivity() model.Activity {
	return model.Activity{
		ID:   "orient",
		Name: "Orienteering",
		Kind: model.EngineCheckpoint,
		Checkpoints: []model.CheckpointDefinition{
			{ID: "A", Label: "Oak", Tier: 1},
			{ID: "B", Label: "Bench", Tier: 2},
		},
		PenaltyBaseMs: 60000,
	}
}

func gymActivity() model.Activity {
	return model.Activity{
		ID:   "gym",
		Kind: model.EngineStandard,
		Criteria: []model.Criterion{
			{ID: "posture", Kind: model.ObservationRating, Max: 4},
			{ID: "side", Kind: model.ObservationChoice, Choices: []string{"left", "right"}},
			{ID: "rope", Kind: model.ObservationBoolean},
		},
	}
}

type recordingSink struct {
	mu      sync.Mutex
	records []model.ResultRecord
	err     error
}

func (r *recordingSink) Emit(_ context.Context, rec model.ResultRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

type memRepo struct {
	data map[string][]byte
	err  error
}

func (m *memRepo) Load(_ context.Context, key string) ([]byte, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memRepo) Save(_ context.Context, key string, value []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

type fixture struct {
	t       *testing.T
	session *Session
	clock   *clock.Manual
	sink    *recordingSink
	logs    *bytes.Buffer
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	activity model.Activity
	roster   []model.RosterEntry
	started  bool
}

func withActivity(a model.Activity) fixtureOption {
	return func(c *fixtureConfig) { c.activity = a }
}

func withRoster(entries ...model.RosterEntry) fixtureOption {
	return func(c *fixtureConfig) { c.roster = entries }
}

func stopped() fixtureOption {
	return func(c *fixtureConfig) { c.started = false }
}

func student(id, group string) model.RosterEntry {
	return model.RosterEntry{SubjectID: id, DisplayName: "Student " + id, GroupLabel: group}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		activity: swimActivity(),
		roster:   []model.RosterEntry{student("s1", "")},
		started:  true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &fixture{
		t:     t,
		clock: clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		sink:  &recordingSink{},
		logs:  &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.session = NewSession(cfg.activity, WithNow(f.clock.Now), WithSink(f.sink), WithLogger(logger))
	f.session.SyncRoster(cfg.roster)
	if cfg.started {
		f.session.Start()
	}
	return f
}

// at moves the manual clock so the session reads ms.
func (f *fixture) at(ms int64) {
	f.t.Helper()
	delta := ms - f.session.Elapsed()
	require.GreaterOrEqual(f.t, delta, int64(0), "clock cannot go back")
	f.clock.AdvanceMs(delta)
	require.Equal(f.t, ms, f.session.Elapsed())
}

func (f *fixture) apply(anchor string, a Action) bool {
	return f.session.Apply(context.Background(), anchor, a)
}

func (f *fixture) progress(id string) *model.SubjectProgress {
	f.t.Helper()
	p, ok := f.session.Progress(id)
	require.True(f.t, ok, "no progress for %s", id)
	return p
}
