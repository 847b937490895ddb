package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

// ColumnType is the value type of an export column.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInt
	ColumnFloat
)

// Column is one export column.
type Column struct {
	Name string
	Type ColumnType
}

// Subject is the state of one roster member handed to the exporter.
type Subject struct {
	Entry    model.RosterEntry
	Config   model.SubjectConfig
	Progress *model.SubjectProgress
	Stats    stats.SubjectStatistics
}

// Table is a flattened one-row-per-subject export. Cells are nil, string,
// int64 or float64 according to the column type.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// BuildTable flattens subjects into a table whose checkpoint columns follow
// the activity step up to the highest boundary any subject reached.
func BuildTable(activity model.Activity, subjects []Subject) Table {
	t := Table{Columns: []Column{
		{Name: "subject_id"},
		{Name: "name"},
		{Name: "group"},
		{Name: "status"},
	}}
	rows := make([][]any, len(subjects))
	for i, s := range subjects {
		status := model.StatusIdle
		if s.Progress != nil {
			status = s.Progress.Status
		}
		rows[i] = []any{s.Entry.SubjectID, s.Entry.DisplayName, s.Entry.GroupLabel, string(status)}
	}

	switch activity.Kind {
	case model.EngineInterval:
		keys := boundaryColumns(activity.Interval.StepSize, subjects)
		for _, k := range keys {
			t.Columns = append(t.Columns, Column{Name: "cp_" + unitsLabel(k), Type: ColumnInt})
		}
		pauses := 0
		for _, s := range subjects {
			if s.Progress != nil {
				pauses = max(pauses, len(s.Progress.PauseDurations))
			}
		}
		for i := 1; i <= pauses; i++ {
			t.Columns = append(t.Columns, Column{Name: fmt.Sprintf("pause_%d", i), Type: ColumnInt})
		}
		for i, s := range subjects {
			for _, k := range keys {
				rows[i] = append(rows[i], recordedAt(s.Progress, k))
			}
			for j := 0; j < pauses; j++ {
				if s.Progress != nil && j < len(s.Progress.PauseDurations) {
					rows[i] = append(rows[i], s.Progress.PauseDurations[j])
				} else {
					rows[i] = append(rows[i], nil)
				}
			}
		}
	case model.EngineCheckpoint:
		for _, def := range activity.Checkpoints {
			t.Columns = append(t.Columns,
				Column{Name: def.ID + "_status"},
				Column{Name: def.ID + "_time", Type: ColumnInt},
				Column{Name: def.ID + "_errors", Type: ColumnInt},
			)
		}
		for i, s := range subjects {
			for _, def := range activity.Checkpoints {
				b := model.BaliseState{Status: model.BaliseUnvisited}
				if s.Progress != nil {
					b = s.Progress.Balise(def.ID)
				}
				var duration any
				if b.DurationMs != nil {
					duration = *b.DurationMs
				}
				rows[i] = append(rows[i], string(b.Status), duration, int64(b.Errors))
			}
		}
	case model.EngineStandard, model.EngineCustom:
		for _, c := range activity.Criteria {
			t.Columns = append(t.Columns, Column{Name: c.ID})
		}
		for i, s := range subjects {
			for _, c := range activity.Criteria {
				var cell any
				if s.Progress != nil {
					if v, ok := s.Progress.Observations[c.ID]; ok {
						cell = FormatObservation(v)
					}
				}
				rows[i] = append(rows[i], cell)
			}
		}
	}

	metricSet := map[string]float64{}
	for _, s := range subjects {
		for name := range s.Stats.Metrics() {
			metricSet[name] = 0
		}
	}
	names := stats.MetricNames(metricSet)
	for _, name := range names {
		t.Columns = append(t.Columns, Column{Name: name, Type: ColumnFloat})
	}
	for i, s := range subjects {
		m := s.Stats.Metrics()
		for _, name := range names {
			if v, ok := m[name]; ok {
				rows[i] = append(rows[i], v)
			} else {
				rows[i] = append(rows[i], nil)
			}
		}
	}
	t.Rows = rows
	return t
}

// boundaryColumns iterates the step up to the highest recorded key and merges
// keys left over from an older step.
func boundaryColumns(step float64, subjects []Subject) []float64 {
	var highest float64
	extra := map[float64]struct{}{}
	for _, s := range subjects {
		if s.Progress == nil {
			continue
		}
		for k := range s.Progress.Recorded {
			highest = max(highest, k)
			if !model.IsMultiple(k, step) {
				extra[k] = struct{}{}
			}
		}
	}
	var keys []float64
	if step > 0 {
		for i := 1; ; i++ {
			k := float64(i) * step
			if k > highest && !model.SameUnits(k, highest) {
				break
			}
			keys = append(keys, k)
		}
	}
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}

func recordedAt(p *model.SubjectProgress, key float64) any {
	if p == nil {
		return nil
	}
	if v, ok := p.Recorded[key]; ok {
		return v
	}
	for k, v := range p.Recorded {
		if model.SameUnits(k, key) {
			return v
		}
	}
	return nil
}

func unitsLabel(units float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(units, 'f', -1, 64), ".", "_")
}

// FormatObservation renders an observation for a table cell.
func FormatObservation(v model.ObservationValue) string {
	switch val := v.(type) {
	case model.BooleanValue:
		return strconv.FormatBool(val.Value)
	case model.CounterValue:
		return strconv.Itoa(val.Count)
	case model.RatingValue:
		return fmt.Sprintf("%d/%d", val.Score, val.Max)
	case model.ChoiceValue:
		return val.Choice
	case model.CoordinateValue:
		return fmt.Sprintf("%g;%g", val.X, val.Y)
	case model.ComplexValue:
		keys := make([]string, 0, len(val.Fields))
		for k := range val.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+FormatObservation(val.Fields[k]))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
