// Package wizard asks for a new activity file interactively.
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gymtrack/internal/config"
	"github.com/verte-zerg/gymtrack/internal/model"
)

var (
	colorAccent = lipgloss.Color("#C89A3A")
	colorFg     = lipgloss.Color("#F0F0F0")
	colorDim    = lipgloss.Color("#8C8C8C")
)

// Answers holds the raw form input. List fields take one entry per line.
type Answers struct {
	ID   string
	Name string
	Kind string

	Step             string
	UnitsPerInterval string
	IntervalCount    string

	// Checkpoints lines read "id[, tier[, label]]".
	Checkpoints string
	// Criteria lines read "id, kind[, max | choice/choice]".
	Criteria string
	// Students lines read "name[, group]".
	Students string
}

func theme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(colorAccent)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(colorFg)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(colorDim)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(colorAccent)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(colorAccent)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.Title = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(colorDim)
	return t
}

// Form builds the activity form bound to a.
func Form(a *Answers) *huh.Form {
	if a.Kind == "" {
		a.Kind = string(model.EngineInterval)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Activity id").Placeholder("swim-500").Value(&a.ID).Validate(required("id")),
			huh.NewInput().Title("Name").Placeholder("Swim 500m").Value(&a.Name),
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("Interval (distance or reps)", string(model.EngineInterval)),
					huh.NewOption("Checkpoints (orienteering)", string(model.EngineCheckpoint)),
					huh.NewOption("Observation sheet", string(model.EngineStandard)),
					huh.NewOption("Custom observation sheet", string(model.EngineCustom)),
				).
				Value(&a.Kind),
		),
		huh.NewGroup(
			huh.NewInput().Title("Step size").Placeholder("50").Value(&a.Step).Validate(positiveFloat),
			huh.NewInput().Title("Units per interval").Placeholder("250").Value(&a.UnitsPerInterval).Validate(positiveFloat),
			huh.NewInput().Title("Interval count").Placeholder("2").Value(&a.IntervalCount).Validate(positiveInt),
		).WithHideFunc(func() bool { return a.Kind != string(model.EngineInterval) }),
		huh.NewGroup(
			huh.NewText().
				Title("Checkpoints").
				Description("one per line: id, tier, label").
				Value(&a.Checkpoints),
		).WithHideFunc(func() bool { return a.Kind != string(model.EngineCheckpoint) }),
		huh.NewGroup(
			huh.NewText().
				Title("Criteria").
				Description("one per line: id, kind, max or choices (a/b/c)").
				Value(&a.Criteria),
		).WithHideFunc(func() bool {
			return a.Kind != string(model.EngineStandard) && a.Kind != string(model.EngineCustom)
		}),
		huh.NewGroup(
			huh.NewText().
				Title("Students").
				Description("one per line: name, group").
				Value(&a.Students),
		),
	).WithTheme(theme())
}

// Run asks the questions and returns the activity file they describe.
func Run(ctx context.Context, a *Answers) (config.ActivityFile, error) {
	if err := Form(a).RunWithContext(ctx); err != nil {
		return config.ActivityFile{}, fmt.Errorf("failed to run activity form: %w", err)
	}
	return a.ActivityFile()
}

// ActivityFile converts the answers and validates the result.
func (a Answers) ActivityFile() (config.ActivityFile, error) {
	f := config.ActivityFile{
		ID:   strings.TrimSpace(a.ID),
		Name: strings.TrimSpace(a.Name),
		Kind: a.Kind,
	}
	if f.Name == "" {
		f.Name = f.ID
	}
	switch model.EngineKind(a.Kind) {
	case model.EngineInterval:
		iv, err := a.interval()
		if err != nil {
			return config.ActivityFile{}, err
		}
		f.Interval = iv
	case model.EngineCheckpoint:
		cps, err := parseCheckpoints(a.Checkpoints)
		if err != nil {
			return config.ActivityFile{}, err
		}
		f.Checkpoints = cps
	case model.EngineStandard, model.EngineCustom:
		crits, err := parseCriteria(a.Criteria)
		if err != nil {
			return config.ActivityFile{}, err
		}
		f.Criteria = crits
	}
	f.Students = parseStudents(a.Students)
	if _, err := f.Definition(); err != nil {
		return config.ActivityFile{}, err
	}
	return f, nil
}

func (a Answers) interval() (*config.IntervalFile, error) {
	step, err := strconv.ParseFloat(strings.TrimSpace(a.Step), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid step size %q", a.Step)
	}
	units, err := strconv.ParseFloat(strings.TrimSpace(a.UnitsPerInterval), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid units per interval %q", a.UnitsPerInterval)
	}
	count, err := strconv.Atoi(strings.TrimSpace(a.IntervalCount))
	if err != nil {
		return nil, fmt.Errorf("invalid interval count %q", a.IntervalCount)
	}
	return &config.IntervalFile{Step: step, UnitsPerInterval: units, IntervalCount: count}, nil
}

func parseCheckpoints(s string) ([]config.CheckpointFile, error) {
	var out []config.CheckpointFile
	for _, fields := range splitLines(s) {
		cp := config.CheckpointFile{ID: fields[0], Tier: 1}
		if len(fields) > 1 && fields[1] != "" {
			tier, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("invalid tier %q for checkpoint %s", fields[1], cp.ID)
			}
			cp.Tier = tier
		}
		if len(fields) > 2 {
			cp.Label = strings.Join(fields[2:], ", ")
		}
		out = append(out, cp)
	}
	return out, nil
}

func parseCriteria(s string) ([]config.CriterionFile, error) {
	var out []config.CriterionFile
	for _, fields := range splitLines(s) {
		if len(fields) < 2 {
			return nil, fmt.Errorf("criterion %s needs a kind", fields[0])
		}
		c := config.CriterionFile{ID: fields[0], Kind: fields[1]}
		if len(fields) > 2 {
			switch model.ObservationKind(c.Kind) {
			case model.ObservationRating, model.ObservationCounter:
				limit, err := strconv.Atoi(fields[2])
				if err != nil {
					return nil, fmt.Errorf("invalid max %q for criterion %s", fields[2], c.ID)
				}
				c.Max = limit
			case model.ObservationChoice:
				for _, choice := range strings.Split(fields[2], "/") {
					if choice = strings.TrimSpace(choice); choice != "" {
						c.Choices = append(c.Choices, choice)
					}
				}
			default:
				c.Label = fields[2]
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func parseStudents(s string) []config.StudentFile {
	var out []config.StudentFile
	seen := map[string]int{}
	for _, fields := range splitLines(s) {
		id := slug(fields[0])
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		st := config.StudentFile{ID: id, Name: fields[0]}
		if len(fields) > 1 {
			st.Group = fields[1]
		}
		out = append(out, st)
	}
	return out
}

// splitLines returns the trimmed comma-separated fields of each non-blank line.
func splitLines(s string) [][]string {
	var out [][]string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		out = append(out, parts)
	}
	return out
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func positiveFloat(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func positiveInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}
