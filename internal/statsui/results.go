package statsui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

// headlineMetric picks the metric a result is summarized by.
func headlineMetric(kind model.EngineKind) string {
	switch kind {
	case model.EngineInterval:
		return "best_interval_ms"
	case model.EngineCheckpoint:
		return "validated"
	case model.EngineStandard, model.EngineCustom:
		return "score"
	default:
		return ""
	}
}

func resultColumns() []table.Column {
	return []table.Column{
		{Title: "Day", Width: 10},
		{Title: "Activity", Width: 14},
		{Title: "Subject", Width: 14},
		{Title: "Engine", Width: 10},
		{Title: "Headline", Width: 26},
		{Title: "Done", Width: 4},
	}
}

func resultRows(records []model.ResultRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		done := ""
		if rec.Metrics["completed"] == 1 {
			done = "yes"
		}
		rows = append(rows, table.Row{
			rec.Day(),
			rec.ActivityID,
			rec.SubjectID,
			string(rec.EngineKind),
			headline(rec),
			done,
		})
	}
	return rows
}

func headline(rec model.ResultRecord) string {
	name := headlineMetric(rec.EngineKind)
	v, ok := rec.Metrics[name]
	if !ok {
		return "-"
	}
	return name + " " + stats.FormatMetric(name, v)
}

type trendKey struct {
	activity string
	subject  string
}

// renderTrends draws one sparkline per activity and subject, oldest result first.
func renderTrends(records []model.ResultRecord, width int) string {
	var order []trendKey
	series := map[trendKey][]model.ResultRecord{}
	for _, rec := range records {
		k := trendKey{activity: rec.ActivityID, subject: rec.SubjectID}
		if _, ok := series[k]; !ok {
			order = append(order, k)
		}
		series[k] = append(series[k], rec)
	}
	if len(order) == 0 {
		return "No results found."
	}
	lines := make([]string, 0, len(order))
	for _, k := range order {
		recs := series[k]
		last := recs[len(recs)-1]
		name := headlineMetric(last.EngineKind)
		values := make([]float64, 0, len(recs))
		for _, rec := range recs {
			if v, ok := rec.Metrics[name]; ok {
				values = append(values, v)
			}
		}
		line := fmt.Sprintf("%-14s %-14s %-12s %s (%d)", k.activity, k.subject, stats.Sparkline(values), headline(last), len(recs))
		lines = append(lines, truncateLine(line, width))
	}
	return strings.Join(lines, "\n")
}

func resultTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
