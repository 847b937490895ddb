package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

const nameWidth = 18

func columnsFor(kind model.EngineKind) []table.Column {
	cols := []table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "Group", Width: 8},
		{Title: "Status", Width: 11},
	}
	switch kind {
	case model.EngineInterval:
		cols = append(cols,
			table.Column{Title: "Int", Width: 5},
			table.Column{Title: "Last", Width: 7},
			table.Column{Title: "Lap", Width: 8},
			table.Column{Title: "Best", Width: 8},
			table.Column{Title: "Trend", Width: 12},
		)
	case model.EngineCheckpoint:
		cols = append(cols,
			table.Column{Title: "Focus", Width: 14},
			table.Column{Title: "Done", Width: 6},
			table.Column{Title: "Err", Width: 4},
			table.Column{Title: "Penalty", Width: 8},
		)
	case model.EngineStandard, model.EngineCustom:
		cols = append(cols,
			table.Column{Title: "Focus", Width: 14},
			table.Column{Title: "Obs", Width: 6},
			table.Column{Title: "Score", Width: 6},
		)
	}
	return cols
}

func (m *Model) rowFor(sub export.Subject) table.Row {
	p := sub.Progress
	row := table.Row{
		runewidth.Truncate(sub.Entry.DisplayName, nameWidth, "…"),
		sub.Entry.GroupLabel,
		statusLabel(p.Status),
	}
	switch m.session.Activity().Kind {
	case model.EngineInterval:
		return append(row, m.intervalCells(sub)...)
	case model.EngineCheckpoint:
		return append(row, m.checkpointCells(sub)...)
	case model.EngineStandard, model.EngineCustom:
		return append(row, m.observationCells(sub)...)
	}
	return row
}

func (m *Model) intervalCells(sub export.Subject) []string {
	p := sub.Progress
	target := model.IntervalTarget{}
	if sub.Config.Interval != nil {
		target = *sub.Config.Interval
	}
	last := "-"
	if k, ok := p.MaxRecorded(); ok {
		last = fmt.Sprintf("%g", k)
	}
	lap := ""
	if p.Status == model.StatusInProgress {
		lap = stats.FormatMs(m.session.Elapsed() - p.IntervalStartMs)
	}
	best := ""
	if st := sub.Stats.Interval; st != nil && st.HasBest {
		best = stats.FormatMs(st.BestIntervalMs)
	}
	return []string{
		fmt.Sprintf("%d/%d", p.IntervalCounter, target.IntervalCount),
		last,
		lap,
		best,
		stats.Sparkline(stats.IntervalTimes(p, target)),
	}
}

func (m *Model) checkpointCells(sub export.Subject) []string {
	p := sub.Progress
	focus := ""
	if id, ok := m.focusedItem(); ok {
		focus = m.baliseCell(p, id)
	}
	done := "0"
	if st := sub.Stats.Checkpoint; st != nil {
		done = fmt.Sprintf("%d/%d", st.Validated, len(sub.Config.Checkpoints))
	}
	penalty := ""
	if due := m.dueTimers(sub.Entry.SubjectID); len(due) > 0 {
		penalty = fmt.Sprintf("! %d", len(due))
	}
	return []string{focus, done, fmt.Sprintf("%d", p.ErrorCount), penalty}
}

func (m *Model) baliseCell(p *model.SubjectProgress, id string) string {
	b := p.Balise(id)
	cell := "-"
	switch b.Status {
	case model.BaliseSearching:
		if b.StartedAtMs != nil {
			cell = "search " + stats.FormatMs(m.session.Elapsed()-*b.StartedAtMs)
		} else {
			cell = "search"
		}
	case model.BaliseValidated:
		cell = "ok"
		if b.DurationMs != nil {
			cell += " " + stats.FormatMs(*b.DurationMs)
		}
	case model.BaliseFailed:
		cell = "failed"
	case model.BaliseUnvisited:
	}
	if b.Errors > 0 {
		cell += fmt.Sprintf(" x%d", b.Errors)
	}
	return cell
}

func (m *Model) observationCells(sub export.Subject) []string {
	focus := "-"
	if id, ok := m.focusedItem(); ok {
		if v, ok := sub.Progress.Observations[id]; ok {
			focus = export.FormatObservation(v)
		}
	}
	obs, score := "0", "0"
	if st := sub.Stats.Observation; st != nil {
		obs = fmt.Sprintf("%d/%d", st.Observed, len(m.session.Activity().Criteria))
		score = fmt.Sprintf("%g", st.Score)
	}
	return []string{focus, obs, score}
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusIdle:
		return "idle"
	case model.StatusInProgress:
		return "running"
	case model.StatusPaused:
		return "paused"
	case model.StatusCompleted:
		return "done"
	default:
		return string(s)
	}
}

func tableStyles() table.Styles {
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
		Foreground(lipgloss.Color("#C89A3A")).
		Bold(true)
	return styles
}
