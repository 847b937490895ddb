package engine

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

func TestNextBoundary(t *testing.T) {
	target := model.IntervalTarget{UnitsPerInterval: 60, IntervalCount: 2, StepSize: 50}
	p := model.NewSubjectProgress("s1")

	var got []float64
	for {
		b, ok := nextBoundary(p, target)
		if !ok {
			break
		}
		got = append(got, b)
		p.Recorded[b] = 0
	}
	assert.Equal(t, []float64{50, 100, 120}, got)
}

func TestNextBoundary_FractionalStep(t *testing.T) {
	target := model.IntervalTarget{UnitsPerInterval: 0.5, IntervalCount: 1, StepSize: 0.1}
	p := model.NewSubjectProgress("s1")

	count := 0
	for {
		b, ok := nextBoundary(p, target)
		if !ok {
			break
		}
		p.Recorded[b] = 0
		count++
		require.LessOrEqual(t, count, 5)
	}
	assert.Equal(t, 5, count)
	highest, _ := p.MaxRecorded()
	assert.InDelta(t, 0.5, highest, 1e-12)
}

func TestInterval_Scenario(t *testing.T) {
	f := newFixture(t)

	f.at(40000)
	require.True(t, f.apply("s1", Record{}))
	p := f.progress("s1")
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.Equal(t, int64(40000), p.Recorded[50])

	f.at(82000)
	require.True(t, f.apply("s1", Record{}))
	p = f.progress("s1")
	assert.Equal(t, int64(82000), p.Recorded[100])
	splits := stats.Splits(p, swimActivity().Interval)
	assert.Equal(t, int64(42000), splits[1].SplitMs)

	for _, at := range []int64{125000, 168000, 210000} {
		f.at(at)
		require.True(t, f.apply("s1", Record{}))
	}
	p = f.progress("s1")
	assert.Equal(t, int64(210000), p.Recorded[250])
	assert.Equal(t, model.StatusPaused, p.Status)
	assert.True(t, p.Pause.IsPaused)
	require.NotNil(t, p.Pause.PauseStartedAtMs)
	assert.Equal(t, int64(210000), *p.Pause.PauseStartedAtMs)
	assert.Equal(t, 2, p.IntervalCounter)

	f.at(260000)
	require.True(t, f.apply("s1", Record{}))
	p = f.progress("s1")
	assert.Equal(t, int64(260000), p.IntervalStartMs)
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.False(t, p.Pause.IsPaused)
	assert.Nil(t, p.Pause.PauseStartedAtMs)
	assert.Len(t, p.Recorded, 5)
	assert.Equal(t, []int64{50000}, p.PauseDurations)

	f.at(295000)
	require.True(t, f.apply("s1", Record{}))
	p = f.progress("s1")
	assert.Equal(t, int64(35000), p.Recorded[300])
	assert.Empty(t, f.sink.records)

	for _, at := range []int64{330000, 370000, 410000, 450000} {
		f.at(at)
		require.True(t, f.apply("s1", Record{}))
	}
	p = f.progress("s1")
	assert.Equal(t, model.StatusCompleted, p.Status)
	assert.Equal(t, int64(190000), p.Recorded[500])
	assert.Equal(t, 2, p.IntervalCounter)

	require.Len(t, f.sink.records, 1)
	rec := f.sink.records[0]
	assert.Equal(t, "s1", rec.SubjectID)
	assert.Equal(t, "swim-500", rec.ActivityID)
	assert.InDelta(t, 190000, rec.Metrics["best_interval_ms"], 1e-9)
	assert.InDelta(t, 1, rec.Metrics["completed"], 1e-9)
}

func TestInterval_RecordNeedsRunningClock(t *testing.T) {
	f := newFixture(t, stopped())

	assert.False(t, f.apply("s1", Record{}))
	assert.Empty(t, f.progress("s1").Recorded)
	assert.Equal(t, model.StatusIdle, f.progress("s1").Status)
	assert.Contains(t, f.logs.String(), "ignoring action while clock is stopped")
}

func TestInterval_CompletedIsTerminal(t *testing.T) {
	a := swimActivity()
	a.Interval = model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 1, StepSize: 50}
	f := newFixture(t, withActivity(a))

	f.at(1000)
	f.apply("s1", Record{})
	f.at(2000)
	f.apply("s1", Record{})
	before := f.progress("s1")
	require.Equal(t, model.StatusCompleted, before.Status)

	f.at(3000)
	assert.False(t, f.apply("s1", Record{}))
	assert.Equal(t, before, f.progress("s1"))
	assert.Len(t, f.sink.records, 1)
}

func TestInterval_ResumeMeasuresFromResume(t *testing.T) {
	a := swimActivity()
	a.Interval = model.IntervalTarget{UnitsPerInterval: 50, IntervalCount: 4, StepSize: 50}

	for _, pause := range []int64{1, 5000, 120000} {
		f := newFixture(t, withActivity(a))
		f.at(30000)
		f.apply("s1", Record{})
		require.Equal(t, model.StatusPaused, f.progress("s1").Status)

		resumeAt := 30000 + pause
		f.at(resumeAt)
		f.apply("s1", Record{})
		p := f.progress("s1")
		assert.Equal(t, resumeAt, p.IntervalStartMs)
		assert.Equal(t, []int64{pause}, p.PauseDurations)

		f.at(resumeAt + 31000)
		f.apply("s1", Record{})
		assert.Equal(t, int64(31000), f.progress("s1").Recorded[100])
	}
}

func TestInterval_ConfigChangeKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.at(10000)
	f.apply("s1", Record{})
	f.at(20000)
	f.apply("s1", Record{})

	require.NoError(t, f.session.SetConfig(model.SubjectConfig{
		SubjectID: "s1",
		Interval:  &model.IntervalTarget{UnitsPerInterval: 250, IntervalCount: 2, StepSize: 75},
	}))
	f.at(30000)
	f.apply("s1", Record{})

	p := f.progress("s1")
	assert.Equal(t, []float64{50, 100, 150}, model.SortedKeys(p.Recorded))
	assert.Equal(t, int64(30000), p.Recorded[150])
}

func TestInterval_SetConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	err := f.session.SetConfig(model.SubjectConfig{
		SubjectID: "s1",
		Interval:  &model.IntervalTarget{UnitsPerInterval: 0, IntervalCount: 2, StepSize: 50},
	})
	require.Error(t, err)
	cfg, _ := f.session.Config("s1")
	assert.InDelta(t, 250, cfg.Interval.UnitsPerInterval, 1e-9)
}

func TestInterval_Redo(t *testing.T) {
	a := swimActivity()
	a.Interval = model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 2, StepSize: 50}
	f := newFixture(t, withActivity(a))

	assert.False(t, f.apply("s1", Redo{}), "nothing recorded yet")

	f.at(1000)
	f.apply("s1", Record{})
	require.True(t, f.apply("s1", Redo{}))
	assert.Empty(t, f.progress("s1").Recorded)

	f.at(2000)
	f.apply("s1", Record{})
	assert.Equal(t, int64(2000), f.progress("s1").Recorded[50])

	f.at(3000)
	f.apply("s1", Record{})
	require.Equal(t, model.StatusPaused, f.progress("s1").Status)
	assert.False(t, f.apply("s1", Redo{}), "paused on an interval end")

	f.at(4000)
	f.apply("s1", Record{})
	assert.False(t, f.apply("s1", Redo{}), "interval end survives a resume")

	for _, at := range []int64{5000, 6000} {
		f.at(at)
		f.apply("s1", Record{})
	}
	require.Equal(t, model.StatusCompleted, f.progress("s1").Status)
	require.True(t, f.apply("s1", Redo{}))
	p := f.progress("s1")
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.NotContains(t, p.Recorded, 200.0)
	assert.Equal(t, 2, p.IntervalCounter)

	f.at(7000)
	require.True(t, f.apply("s1", Record{}))
	assert.Equal(t, int64(3000), f.progress("s1").Recorded[200])
}

func TestInterval_RedoWorksWhileClockStopped(t *testing.T) {
	f := newFixture(t)
	f.at(1000)
	f.apply("s1", Record{})
	f.session.Pause()

	assert.True(t, f.apply("s1", Redo{}))
	assert.Empty(t, f.progress("s1").Recorded)
}

func TestInterval_MonotonicCheckpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	steps := []float64{25, 50, 75}

	for run := 0; run < 20; run++ {
		f := newFixture(t)
		var order []float64
		now := int64(0)
		for i := 0; i < 60; i++ {
			if rng.Intn(5) == 0 {
				step := steps[rng.Intn(len(steps))]
				require.NoError(t, f.session.SetConfig(model.SubjectConfig{
					SubjectID: "s1",
					Interval:  &model.IntervalTarget{UnitsPerInterval: 250, IntervalCount: 2, StepSize: step},
				}))
			}
			now += int64(rng.Intn(20000))
			f.at(now)

			before := f.progress("s1")
			cfg, _ := f.session.Config("s1")
			f.apply("s1", Record{})
			after := f.progress("s1")

			for k, v := range before.Recorded {
				require.Equal(t, v, after.Recorded[k], "recorded checkpoint %v changed", k)
			}
			added := len(after.Recorded) - len(before.Recorded)
			require.LessOrEqual(t, added, 1)
			if added == 0 {
				continue
			}
			for k := range after.Recorded {
				if _, ok := before.Recorded[k]; ok {
					continue
				}
				if len(order) > 0 {
					require.Greater(t, k, order[len(order)-1])
				}
				total := cfg.Interval.Total()
				require.True(t, model.IsMultiple(k, cfg.Interval.StepSize) || model.SameUnits(k, total),
					"key %v is not a multiple of %v", k, cfg.Interval.StepSize)
				order = append(order, k)
			}
		}
	}
}

func TestInterval_ResumeAfterClockReset(t *testing.T) {
	a := swimActivity()
	a.Interval = model.IntervalTarget{UnitsPerInterval: 50, IntervalCount: 4, StepSize: 50}
	f := newFixture(t, withActivity(a))
	f.at(210000)
	f.apply("s1", Record{})
	require.Equal(t, model.StatusPaused, f.progress("s1").Status)

	f.session.ResetClock()
	f.session.Start()
	f.at(1000)
	require.True(t, f.apply("s1", Record{}))
	p := f.progress("s1")
	assert.Equal(t, []int64{0}, p.PauseDurations)
	assert.Equal(t, int64(1000), p.IntervalStartMs)
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.Contains(t, f.logs.String(), "pause start ahead of clock")

	f.at(31000)
	f.apply("s1", Record{})
	assert.Equal(t, int64(30000), f.progress("s1").Recorded[100])
}

func TestInterval_RecordAfterClockReset(t *testing.T) {
	a := swimActivity()
	a.Interval = model.IntervalTarget{UnitsPerInterval: 50, IntervalCount: 4, StepSize: 50}
	f := newFixture(t, withActivity(a))
	f.at(30000)
	f.apply("s1", Record{})
	f.at(40000)
	f.apply("s1", Record{})
	require.Equal(t, int64(40000), f.progress("s1").IntervalStartMs)

	f.session.ResetClock()
	f.session.Start()
	f.at(3000)
	require.True(t, f.apply("s1", Record{}))
	p := f.progress("s1")
	assert.Equal(t, int64(3000), p.IntervalStartMs)
	assert.Equal(t, int64(0), p.Recorded[100])
	assert.Contains(t, f.logs.String(), "interval start ahead of clock")
}

func TestInterval_ResumeWithoutPauseStart(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := model.NewSubjectProgress("s1")
	p.Status = model.StatusPaused
	p.Pause = model.PauseState{IsPaused: true}

	resume(p, 5000, logger)
	assert.Equal(t, []int64{0}, p.PauseDurations)
	assert.Equal(t, int64(5000), p.IntervalStartMs)
	assert.Contains(t, logs.String(), "paused subject has no pause start")
}
