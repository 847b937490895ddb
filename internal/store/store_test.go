package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/engine"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/model"
)

var (
	_ engine.Repository = (*Store)(nil)
	_ export.Sink       = (*Store)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "gymtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return st
}

func TestStore_KeyValue(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, ok, err := st.Load(ctx, "session/swim")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Save(ctx, "session/swim", []byte(`{"v":1}`)))
	require.NoError(t, st.Save(ctx, "session/swim", []byte(`{"v":2}`)))

	value, ok, err := st.Load(ctx, "session/swim")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(value))
}

func TestStore_UpsertResultByDay(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	morning := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.Emit(ctx, model.ResultRecord{
		ID: "r1", SubjectID: "s1", ActivityID: "swim", EngineKind: model.EngineInterval,
		Metrics:     map[string]float64{"best_interval_ms": 210000, "total_units": 250},
		CompletedAt: morning,
	}))
	require.NoError(t, st.Emit(ctx, model.ResultRecord{
		ID: "r2", SubjectID: "s1", ActivityID: "swim", EngineKind: model.EngineInterval,
		Metrics:     map[string]float64{"best_interval_ms": 190000},
		CompletedAt: morning.Add(2 * time.Hour),
	}))
	require.NoError(t, st.Emit(ctx, model.ResultRecord{
		ID: "r3", SubjectID: "s1", ActivityID: "swim", EngineKind: model.EngineInterval,
		Metrics:     map[string]float64{"best_interval_ms": 200000},
		CompletedAt: morning.Add(24 * time.Hour),
	}))

	results, err := st.ListResults(ctx, ResultFilter{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "r2", first.ID)
	assert.Equal(t, model.EngineInterval, first.EngineKind)
	assert.Equal(t, map[string]float64{"best_interval_ms": 190000}, first.Metrics)
	assert.True(t, first.CompletedAt.Equal(morning.Add(2*time.Hour)))
	assert.Equal(t, "r3", results[1].ID)
}

func TestStore_ListResultsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []model.ResultRecord{
		{ID: "a", SubjectID: "s1", ActivityID: "swim", CompletedAt: base},
		{ID: "b", SubjectID: "s2", ActivityID: "swim", CompletedAt: base.Add(48 * time.Hour)},
		{ID: "c", SubjectID: "s1", ActivityID: "orient", CompletedAt: base.Add(72 * time.Hour)},
	}
	for _, rec := range records {
		require.NoError(t, st.UpsertResult(ctx, rec))
	}

	swim, err := st.ListResults(ctx, ResultFilter{ActivityID: "swim"})
	require.NoError(t, err)
	assert.Len(t, swim, 2)

	since := base.Add(24 * time.Hour)
	recent, err := st.ListResults(ctx, ResultFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Empty(t, recent[0].Metrics)

	s1, err := st.ListResults(ctx, ResultFilter{SubjectID: "s1", ActivityID: "orient"})
	require.NoError(t, err)
	require.Len(t, s1, 1)
	assert.Equal(t, "c", s1[0].ID)
}

func TestStore_SessionSnapshotRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	activity := model.Activity{
		ID:       "swim",
		Kind:     model.EngineInterval,
		Interval: model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 1, StepSize: 50},
	}
	roster := []model.RosterEntry{{SubjectID: "s1", DisplayName: "Léa"}}

	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	s := engine.NewSession(activity, engine.WithNow(now), engine.WithSink(st))
	s.SyncRoster(roster)
	s.Start()
	current = current.Add(30 * time.Second)
	require.True(t, s.Apply(ctx, "s1", engine.Record{}))
	current = current.Add(30 * time.Second)
	require.True(t, s.Apply(ctx, "s1", engine.Record{}))
	require.NoError(t, s.Save(ctx, st))

	results, err := st.ListResults(ctx, ResultFilter{ActivityID: "swim"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 60000, results[0].Metrics["best_interval_ms"], 1e-9)

	restored := engine.NewSession(activity)
	ok, err := restored.Load(ctx, st)
	require.NoError(t, err)
	require.True(t, ok)
	p, ok := restored.Progress("s1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, p.Status)
	assert.Equal(t, int64(60000), p.Recorded[100])
}

func TestStore_OpenMemory(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	require.NoError(t, st.Save(context.Background(), "k", []byte("v")))
	value, ok, err := st.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(value))
}
