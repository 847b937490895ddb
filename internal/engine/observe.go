package engine

import (
	"slices"

	"github.com/verte-zerg/gymtrack/internal/model"
)

// observe stores a criterion value when its kind and range match the
// criterion.
func observe(p *model.SubjectProgress, criteria []model.Criterion, id string, value model.ObservationValue) outcome {
	if value == nil {
		return outcomeNone
	}
	idx := slices.IndexFunc(criteria, func(c model.Criterion) bool { return c.ID == id })
	if idx < 0 {
		return outcomeNone
	}
	c := criteria[idx]
	if value.Kind() != c.Kind || !acceptable(c, value) {
		return outcomeNone
	}
	if v, ok := value.(model.RatingValue); ok {
		v.Max = c.Max
		value = v
	}
	p.Observations[id] = value
	if p.Status == model.StatusIdle {
		p.Status = model.StatusInProgress
	}
	return outcomeApplied
}

func acceptable(c model.Criterion, value model.ObservationValue) bool {
	switch v := value.(type) {
	case model.BooleanValue, model.CoordinateValue:
		return true
	case model.CounterValue:
		return v.Count >= 0
	case model.RatingValue:
		return v.Score >= 0 && v.Score <= c.Max
	case model.ChoiceValue:
		return slices.Contains(c.Choices, v.Choice)
	case model.ComplexValue:
		return len(v.Fields) > 0
	default:
		return false
	}
}
