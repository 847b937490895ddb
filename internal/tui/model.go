// Package tui provides the Bubble Tea live session screen.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gymtrack/internal/engine"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

// DefaultTick is the clock refresh cadence.
const DefaultTick = 100 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	penaltyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type tickMsg time.Time

// Model implements the Bubble Tea live session UI.
type Model struct {
	ctx     context.Context
	session *engine.Session
	repo    engine.Repository
	logger  *slog.Logger
	tick    time.Duration

	keys  keyMap
	help  help.Model
	table table.Model

	subjects []export.Subject
	focus    int

	status     string
	statusErr  bool
	saveErr    error
	resetArmed bool

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithRepository persists the session snapshot on quit.
func WithRepository(repo engine.Repository) Option {
	return func(m *Model) {
		m.repo = repo
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTick sets the clock refresh cadence.
func WithTick(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.tick = d
		}
	}
}

// NewModel constructs the live session UI for s.
func NewModel(ctx context.Context, s *engine.Session, opts ...Option) *Model {
	m := &Model{
		ctx:     ctx,
		session: s,
		logger:  slog.New(slog.DiscardHandler),
		tick:    DefaultTick,
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	kind := s.Activity().Kind
	m.keys = defaultKeys().forKind(
		kind == model.EngineInterval,
		kind == model.EngineCheckpoint,
		kind == model.EngineStandard || kind == model.EngineCustom,
	)
	m.table = table.New(
		table.WithColumns(columnsFor(kind)),
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
	)
	m.refresh()
	return m
}

// SaveErr returns the snapshot error from quitting, if any.
func (m *Model) SaveErr() error {
	return m.saveErr
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updateLayout()
		return m, nil
	case tickMsg:
		m.refresh()
		return m, m.tickCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	armed := m.resetArmed
	m.resetArmed = false
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveSnapshot()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateLayout()
	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp(1)
		m.clampFocus()
	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown(1)
		m.clampFocus()
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Clock):
		if m.session.Running() {
			m.session.Pause()
		} else {
			m.session.Start()
		}
	case key.Matches(msg, m.keys.Reset):
		m.session.ResetClock()
		m.setStatus("clock reset", false)
	case key.Matches(msg, m.keys.ResetAll):
		if armed {
			m.session.ResetAll()
			m.setStatus("session reset", false)
			break
		}
		m.resetArmed = true
		m.setStatus("press ctrl+r again to reset every subject", true)
	case key.Matches(msg, m.keys.Clear):
		m.resetSubject()
	case key.Matches(msg, m.keys.Save):
		m.saveResult()
	case key.Matches(msg, m.keys.Record):
		m.apply(engine.Record{})
	case key.Matches(msg, m.keys.Redo):
		m.apply(engine.Redo{})
	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.focusedItem(); ok {
			m.apply(engine.ToggleSearch{Checkpoint: id})
		}
	case key.Matches(msg, m.keys.Validate), key.Matches(msg, m.keys.Fail):
		if id, ok := m.focusedItem(); ok {
			m.apply(engine.Resolve{Checkpoint: id, Success: key.Matches(msg, m.keys.Validate)})
		}
	case key.Matches(msg, m.keys.Yes), key.Matches(msg, m.keys.No),
		key.Matches(msg, m.keys.Choice), key.Matches(msg, m.keys.Score):
		m.observe(msg.String())
	}
	m.refresh()
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	activity := m.session.Activity()
	clock := stats.FormatMs(m.session.Elapsed())
	state := stoppedStyle.Render(clock + " stopped")
	if m.session.Running() {
		state = runningStyle.Render(clock + " running")
	}
	return titleStyle.Render(activity.Name) + "  " + state
}

func (m *Model) renderFooter() string {
	var segments []string
	if id, ok := m.focusedItem(); ok {
		segments = append(segments, "Focus "+m.focusLabel(id))
	}
	if sub, ok := m.selected(); ok {
		if due := m.dueTimers(sub.Entry.SubjectID); len(due) > 0 {
			segments = append(segments, penaltyStyle.Render("Penalty due: "+strings.Join(due, ", ")))
		}
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.status == "" {
		return footer
	}
	status := footerStyle.Render(m.status)
	if m.statusErr {
		status = errorStyle.Render(m.status)
	}
	if footer == "" {
		return status
	}
	return footer + "  " + status
}

func (m *Model) updateLayout() {
	if m.height <= 0 {
		return
	}
	// header, footer and help lines
	reserved := 3 + lipgloss.Height(m.help.View(m.keys))
	m.table.SetHeight(maxInt(1, m.height-reserved))
	if m.width > 0 {
		m.table.SetWidth(m.width)
	}
}

func (m *Model) refresh() {
	m.subjects = m.session.ExportSubjects()
	rows := make([]table.Row, 0, len(m.subjects))
	for _, sub := range m.subjects {
		rows = append(rows, m.rowFor(sub))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	m.clampFocus()
}

func (m *Model) selected() (export.Subject, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.subjects) {
		return export.Subject{}, false
	}
	return m.subjects[c], true
}

func (m *Model) apply(action engine.Action) {
	sub, ok := m.selected()
	if !ok {
		return
	}
	if m.session.Apply(m.ctx, sub.Entry.SubjectID, action) {
		m.setStatus("", false)
		return
	}
	switch action.(type) {
	case engine.Record, engine.ToggleSearch, engine.Resolve:
		if !m.session.Running() {
			m.setStatus("clock is stopped, press s", true)
			return
		}
	}
	m.setStatus(action.Name()+": no change", false)
}

// resetSubject clears the selected subject and its group.
func (m *Model) resetSubject() {
	sub, ok := m.selected()
	if !ok {
		return
	}
	if m.session.Apply(m.ctx, sub.Entry.SubjectID, engine.ResetSubject{}) {
		m.setStatus("progress reset for "+sub.Entry.DisplayName, false)
		return
	}
	m.setStatus("reset_subject: no change", false)
}

func (m *Model) saveResult() {
	sub, ok := m.selected()
	if !ok {
		return
	}
	if _, err := m.session.SaveResult(m.ctx, sub.Entry.SubjectID); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("result saved for "+sub.Entry.DisplayName, false)
}

func (m *Model) saveSnapshot() {
	if m.repo == nil {
		return
	}
	if err := m.session.Save(m.ctx, m.repo); err != nil {
		m.saveErr = err
		m.logger.Error("failed to save session snapshot", "err", err)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// observe maps an observation key onto the focused criterion.
func (m *Model) observe(k string) {
	criterion, ok := m.focusedCriterion()
	if !ok {
		return
	}
	sub, _ := m.selected()
	var value model.ObservationValue
	switch criterion.Kind {
	case model.ObservationBoolean:
		switch k {
		case "y":
			value = model.BooleanValue{Value: true}
		case "n":
			value = model.BooleanValue{Value: false}
		}
	case model.ObservationCounter:
		if n, err := strconv.Atoi(k); err == nil {
			value = model.CounterValue{Count: n}
		}
	case model.ObservationRating:
		if n, err := strconv.Atoi(k); err == nil {
			value = model.RatingValue{Score: n}
		}
	case model.ObservationChoice:
		if k == "c" && len(criterion.Choices) > 0 {
			value = model.ChoiceValue{Choice: nextChoice(criterion.Choices, sub.Progress.Observations[criterion.ID])}
		}
	case model.ObservationCoordinate, model.ObservationComplex:
	}
	if value == nil {
		m.setStatus(fmt.Sprintf("%s takes a %s value", criterion.ID, criterion.Kind), true)
		return
	}
	m.apply(engine.Observe{Criterion: criterion.ID, Value: value})
}

func nextChoice(choices []string, current model.ObservationValue) string {
	cv, ok := current.(model.ChoiceValue)
	if !ok {
		return choices[0]
	}
	for i, c := range choices {
		if c == cv.Choice {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

// focusItems lists the checkpoints or criteria the focus cycles through.
func (m *Model) focusItems() []string {
	sub, ok := m.selected()
	if !ok {
		return nil
	}
	activity := m.session.Activity()
	var out []string
	switch activity.Kind {
	case model.EngineCheckpoint:
		for _, def := range sub.Config.Checkpoints {
			out = append(out, def.ID)
		}
	case model.EngineStandard, model.EngineCustom:
		for _, c := range activity.Criteria {
			out = append(out, c.ID)
		}
	case model.EngineInterval:
	}
	return out
}

func (m *Model) focusedItem() (string, bool) {
	items := m.focusItems()
	if len(items) == 0 {
		return "", false
	}
	if m.focus >= len(items) {
		m.focus = len(items) - 1
	}
	return items[m.focus], true
}

func (m *Model) focusedCriterion() (model.Criterion, bool) {
	id, ok := m.focusedItem()
	if !ok {
		return model.Criterion{}, false
	}
	for _, c := range m.session.Activity().Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return model.Criterion{}, false
}

func (m *Model) focusLabel(id string) string {
	activity := m.session.Activity()
	for _, def := range activity.Checkpoints {
		if def.ID == id && def.Label != "" {
			return fmt.Sprintf("%s (%s, tier %d)", id, def.Label, def.Tier)
		}
	}
	for _, c := range activity.Criteria {
		if c.ID == id && c.Label != "" {
			return fmt.Sprintf("%s (%s)", id, c.Label)
		}
	}
	return id
}

func (m *Model) moveFocus(delta int) {
	n := len(m.focusItems())
	if n == 0 {
		m.focus = 0
		return
	}
	m.focus = ((m.focus+delta)%n + n) % n
}

func (m *Model) clampFocus() {
	n := len(m.focusItems())
	if m.focus >= n {
		m.focus = maxInt(0, n-1)
	}
}

func (m *Model) dueTimers(id string) []string {
	var due []string
	for _, t := range m.session.SearchTimers(id) {
		if t.Due {
			due = append(due, t.Checkpoint)
		}
	}
	return due
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
