package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/gymtrack/internal/model"
)

const sparkChars = " .:-=+*#%@"

// FormatMs renders milliseconds as m:ss.t.
func FormatMs(ms int64) string {
	neg := ms < 0
	if neg {
		ms = -ms
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	tenths := (ms % 1000) / 100
	out := fmt.Sprintf("%d:%02d.%d", minutes, seconds, tenths)
	if neg {
		return "-" + out
	}
	return out
}

// IntervalTimes returns the interval-end durations ordered by distance.
func IntervalTimes(p *model.SubjectProgress, target model.IntervalTarget) []float64 {
	var out []float64
	for _, k := range model.SortedKeys(p.Recorded) {
		if model.IsMultiple(k, target.UnitsPerInterval) {
			out = append(out, float64(p.Recorded[k]))
		}
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ReportRow is one subject line of the live report.
type ReportRow struct {
	Name   string
	Group  string
	Status model.Status
	Stats  SubjectStatistics
	Trend  []float64
}

// RenderReport prints one table line per subject.
func RenderReport(w io.Writer, title string, rows []ReportRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	kind := rows[0].Stats.Kind
	headers := []string{"Name", "Group", "Status"}
	rightAlign := map[int]bool{}
	switch kind {
	case model.EngineInterval:
		headers = append(headers, "Intervals", "Best", "Average", "Pace/50", "Trend")
		rightAlign = map[int]bool{3: true, 4: true, 5: true, 6: true}
	case model.EngineCheckpoint:
		headers = append(headers, "Validated", "Failed", "Best", "Average", "Score")
		rightAlign = map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true}
	case model.EngineStandard, model.EngineCustom:
		headers = append(headers, "Observed", "Score")
		rightAlign = map[int]bool{3: true, 4: true}
	}

	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.Name, r.Group, string(r.Status)}
		switch {
		case r.Stats.Interval != nil:
			is := r.Stats.Interval
			line = append(line,
				fmt.Sprintf("%d", is.CompletedIntervals),
				optionalMs(is.BestIntervalMs, is.HasBest),
				optionalMs(int64(is.AverageIntervalMs), is.CompletedIntervals > 0),
				optionalMs(int64(is.AveragePerUnitMs), is.CompletedIntervals > 0),
				Sparkline(r.Trend),
			)
		case r.Stats.Checkpoint != nil:
			cs := r.Stats.Checkpoint
			line = append(line,
				fmt.Sprintf("%d", cs.Validated),
				fmt.Sprintf("%d", cs.Failed),
				optionalMs(cs.BestSearchMs, cs.HasBest),
				optionalMs(int64(cs.AverageSearchMs), cs.Validated > 0),
				fmt.Sprintf("%d", cs.Score),
			)
		case r.Stats.Observation != nil:
			line = append(line,
				fmt.Sprintf("%d", r.Stats.Observation.Observed),
				fmt.Sprintf("%.1f", r.Stats.Observation.Score),
			)
		}
		tableRows = append(tableRows, line)
	}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderResults prints stored result records, truncating lines to width
// when width is positive.
func RenderResults(w io.Writer, records []model.ResultRecord, width int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	headers := []string{"Day", "Activity", "Subject", "Engine", "Metrics"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		parts := make([]string, 0, len(rec.Metrics))
		for _, name := range MetricNames(rec.Metrics) {
			parts = append(parts, fmt.Sprintf("%s=%s", name, FormatMetric(name, rec.Metrics[name])))
		}
		rows = append(rows, []string{rec.Day(), rec.ActivityID, rec.SubjectID, string(rec.EngineKind), strings.Join(parts, " ")})
	}
	for _, line := range formatTable(headers, rows, nil) {
		if width > 0 {
			line = truncateCell(line, width)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func optionalMs(ms int64, ok bool) string {
	if !ok {
		return "-"
	}
	return FormatMs(ms)
}

// FormatMetric renders a metric value, using clock notation for _ms metrics.
func FormatMetric(name string, v float64) string {
	if strings.HasSuffix(name, "_ms") {
		return FormatMs(int64(v))
	}
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
