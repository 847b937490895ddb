package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/clock"
	"github.com/verte-zerg/gymtrack/internal/engine"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/model"
)

type memRepo map[string][]byte

func (r memRepo) Load(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := r[key]
	return v, ok, nil
}

func (r memRepo) Save(_ context.Context, key string, value []byte) error {
	r[key] = value
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, msgs ...tea.KeyMsg) {
	t.Helper()
	for _, msg := range msgs {
		_, _ = m.Update(msg)
	}
}

func newTestModel(t *testing.T, activity model.Activity, opts ...engine.Option) (*Model, *engine.Session, *clock.Manual) {
	t.Helper()
	manual := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	s := engine.NewSession(activity, append([]engine.Option{engine.WithNow(manual.Now)}, opts...)...)
	s.SyncRoster([]model.RosterEntry{
		{SubjectID: "s1", DisplayName: "Ana"},
		{SubjectID: "s2", DisplayName: "Bruno"},
	})
	return NewModel(context.Background(), s), s, manual
}

func TestRecordTargetsSelectedSubject(t *testing.T) {
	activity := model.Activity{
		ID:       "swim",
		Name:     "Swim",
		Kind:     model.EngineInterval,
		Interval: model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 2, StepSize: 50},
	}
	m, s, manual := newTestModel(t, activity)

	press(t, m, runes("s"))
	require.True(t, s.Running())
	manual.AdvanceMs(30000)
	press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeySpace})

	p, ok := s.Progress("s2")
	require.True(t, ok)
	assert.Equal(t, map[float64]int64{50: 30000}, p.Recorded)
	first, ok := s.Progress("s1")
	require.True(t, ok)
	assert.Empty(t, first.Recorded)
	assert.Contains(t, m.View(), "running")
}

func TestRecordWhileStoppedShowsHint(t *testing.T) {
	activity := model.Activity{
		ID:       "swim",
		Name:     "Swim",
		Kind:     model.EngineInterval,
		Interval: model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 2, StepSize: 50},
	}
	m, s, _ := newTestModel(t, activity)

	press(t, m, tea.KeyMsg{Type: tea.KeySpace})

	p, _ := s.Progress("s1")
	assert.Empty(t, p.Recorded)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "clock is stopped")
	assert.Contains(t, m.View(), "stopped")
}

func TestCheckpointKeysFollowFocus(t *testing.T) {
	activity := model.Activity{
		ID:   "orient",
		Name: "Orienteering",
		Kind: model.EngineCheckpoint,
		Checkpoints: []model.CheckpointDefinition{
			{ID: "A", Label: "Oak", Tier: 1},
			{ID: "B", Label: "Bench", Tier: 2},
		},
		PenaltyBaseMs: 60000,
	}
	m, s, manual := newTestModel(t, activity)

	press(t, m, runes("s"))
	manual.AdvanceMs(1000)
	press(t, m, tea.KeyMsg{Type: tea.KeyRight}, runes("t"))
	manual.AdvanceMs(2000)
	press(t, m, runes("v"))

	p, _ := s.Progress("s1")
	b := p.Balise("B")
	assert.Equal(t, model.BaliseValidated, b.Status)
	require.NotNil(t, b.DurationMs)
	assert.Equal(t, int64(2000), *b.DurationMs)
	assert.Equal(t, model.BaliseUnvisited, p.Balise("A").Status)
	assert.Contains(t, m.renderFooter(), "B (Bench, tier 2)")
}

func TestFocusWraps(t *testing.T) {
	activity := model.Activity{
		ID:   "orient",
		Kind: model.EngineCheckpoint,
		Checkpoints: []model.CheckpointDefinition{
			{ID: "A", Tier: 1},
			{ID: "B", Tier: 1},
		},
	}
	m, _, _ := newTestModel(t, activity)

	press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	id, ok := m.focusedItem()
	require.True(t, ok)
	assert.Equal(t, "B", id)
	press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	id, _ = m.focusedItem()
	assert.Equal(t, "A", id)
}

func TestObservationKeys(t *testing.T) {
	activity := model.Activity{
		ID:   "gym",
		Name: "Gym",
		Kind: model.EngineStandard,
		Criteria: []model.Criterion{
			{ID: "posture", Kind: model.ObservationRating, Max: 4},
			{ID: "rope", Kind: model.ObservationBoolean},
			{ID: "side", Kind: model.ObservationChoice, Choices: []string{"left", "right"}},
		},
	}
	m, s, _ := newTestModel(t, activity)

	press(t, m, runes("3"), tea.KeyMsg{Type: tea.KeyRight}, runes("y"))
	press(t, m, tea.KeyMsg{Type: tea.KeyRight}, runes("c"), runes("c"))

	p, _ := s.Progress("s1")
	assert.Equal(t, model.RatingValue{Score: 3, Max: 4}, p.Observations["posture"])
	assert.Equal(t, model.BooleanValue{Value: true}, p.Observations["rope"])
	assert.Equal(t, model.ChoiceValue{Choice: "right"}, p.Observations["side"])

	press(t, m, runes("y"))
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "side takes a choice value")
}

func TestSaveResultAndQuitSnapshot(t *testing.T) {
	activity := model.Activity{
		ID:       "gym",
		Name:     "Gym",
		Kind:     model.EngineStandard,
		Criteria: []model.Criterion{{ID: "rope", Kind: model.ObservationBoolean}},
	}
	var emitted []model.ResultRecord
	sink := export.SinkFunc(func(_ context.Context, rec model.ResultRecord) error {
		emitted = append(emitted, rec)
		return nil
	})
	_, s, _ := newTestModel(t, activity, engine.WithSink(sink))
	repo := memRepo{}
	m := NewModel(context.Background(), s, WithRepository(repo))

	press(t, m, runes("y"), runes("w"))
	require.Len(t, emitted, 1)
	assert.Equal(t, "s1", emitted[0].SubjectID)
	assert.Contains(t, m.status, "result saved for Ana")

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	require.NoError(t, m.SaveErr())
	assert.Contains(t, repo, engine.SnapshotKey("gym"))
}

func TestClockKeys(t *testing.T) {
	activity := model.Activity{ID: "gym", Kind: model.EngineStandard}
	m, s, manual := newTestModel(t, activity)

	press(t, m, runes("s"))
	manual.AdvanceMs(5000)
	assert.Equal(t, int64(5000), s.Elapsed())
	press(t, m, runes("s"))
	assert.False(t, s.Running())
	press(t, m, runes("R"))
	assert.Equal(t, int64(0), s.Elapsed())
}

func TestRowsTruncateLongNames(t *testing.T) {
	activity := model.Activity{ID: "gym", Kind: model.EngineStandard}
	m, s, _ := newTestModel(t, activity)
	s.SyncRoster([]model.RosterEntry{{SubjectID: "s1", DisplayName: "Maximiliano Fernández-Oliveira"}})
	m.refresh()

	rows := m.table.Rows()
	require.Len(t, rows, 1)
	assert.LessOrEqual(t, len([]rune(rows[0][0])), nameWidth)
	assert.Equal(t, "idle", rows[0][2])
}

func TestResetKeys(t *testing.T) {
	activity := model.Activity{
		ID:       "swim",
		Name:     "Swim",
		Kind:     model.EngineInterval,
		Interval: model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 2, StepSize: 50},
	}
	m, s, manual := newTestModel(t, activity)

	press(t, m, runes("s"))
	manual.AdvanceMs(30000)
	press(t, m, tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeySpace})

	press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	p, _ := s.Progress("s2")
	assert.Empty(t, p.Recorded)
	assert.Equal(t, model.StatusIdle, p.Status)
	assert.Contains(t, m.View(), "progress reset for Bruno")
	p, _ = s.Progress("s1")
	assert.Len(t, p.Recorded, 1)

	press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Contains(t, m.View(), "reset_subject: no change")

	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.True(t, s.Running())
	assert.Contains(t, m.View(), "press ctrl+r again")
	p, _ = s.Progress("s1")
	assert.Len(t, p.Recorded, 1)

	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.False(t, s.Running())
	assert.Equal(t, int64(0), s.Elapsed())
	p, _ = s.Progress("s1")
	assert.Empty(t, p.Recorded)
	assert.Contains(t, m.View(), "session reset")
}

func TestResetSessionNeedsConsecutivePresses(t *testing.T) {
	activity := model.Activity{ID: "gym", Kind: model.EngineStandard}
	m, s, manual := newTestModel(t, activity)

	press(t, m, runes("s"))
	manual.AdvanceMs(5000)
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.True(t, s.Running())
	assert.Equal(t, int64(5000), s.Elapsed())
}
