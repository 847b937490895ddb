package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/config"
)

func TestIntervalAnswers(t *testing.T) {
	a := Answers{
		ID:               "swim-500",
		Kind:             "interval",
		Step:             "50",
		UnitsPerInterval: " 250 ",
		IntervalCount:    "2",
		Students:         "Léa Martin, blue\n\nLéa Martin\nTom",
	}

	f, err := a.ActivityFile()
	require.NoError(t, err)
	assert.Equal(t, "swim-500", f.Name)
	require.NotNil(t, f.Interval)
	assert.Equal(t, config.IntervalFile{Step: 50, UnitsPerInterval: 250, IntervalCount: 2}, *f.Interval)
	assert.Equal(t, []config.StudentFile{
		{ID: "léa-martin", Name: "Léa Martin", Group: "blue"},
		{ID: "léa-martin-2", Name: "Léa Martin"},
		{ID: "tom", Name: "Tom"},
	}, f.Students)
}

func TestCheckpointAnswers(t *testing.T) {
	a := Answers{
		ID:          "orient",
		Name:        "Park run",
		Kind:        "checkpoint",
		Checkpoints: "A\nB, 2, Old bench, north side",
	}

	f, err := a.ActivityFile()
	require.NoError(t, err)
	assert.Equal(t, []config.CheckpointFile{
		{ID: "A", Tier: 1},
		{ID: "B", Tier: 2, Label: "Old bench, north side"},
	}, f.Checkpoints)
}

func TestCriteriaAnswers(t *testing.T) {
	a := Answers{
		ID:       "gym",
		Kind:     "standard",
		Criteria: "posture, rating, 4\nside, choice, left / right\nrope, boolean",
	}

	f, err := a.ActivityFile()
	require.NoError(t, err)
	require.Len(t, f.Criteria, 3)
	assert.Equal(t, 4, f.Criteria[0].Max)
	assert.Equal(t, []string{"left", "right"}, f.Criteria[1].Choices)
	assert.Equal(t, "boolean", f.Criteria[2].Kind)
}

func TestInvalidAnswers(t *testing.T) {
	_, err := Answers{ID: "swim", Kind: "interval", Step: "fast", UnitsPerInterval: "1", IntervalCount: "1"}.ActivityFile()
	assert.ErrorContains(t, err, "invalid step size")

	_, err = Answers{ID: "swim", Kind: "interval", Step: "0", UnitsPerInterval: "100", IntervalCount: "1"}.ActivityFile()
	assert.True(t, errors.Is(err, config.ErrInvalidActivity))

	_, err = Answers{ID: "gym", Kind: "standard", Criteria: "posture"}.ActivityFile()
	assert.ErrorContains(t, err, "needs a kind")

	_, err = Answers{ID: "orient", Kind: "checkpoint", Checkpoints: "A, high"}.ActivityFile()
	assert.ErrorContains(t, err, "invalid tier")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, positiveFloat("12.5"))
	assert.Error(t, positiveFloat("-1"))
	assert.NoError(t, positiveInt("3"))
	assert.Error(t, positiveInt("1.5"))
	assert.Error(t, required("id")("  "))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "anne-sophie-d", slug("  Anne-Sophie  D. "))
}
