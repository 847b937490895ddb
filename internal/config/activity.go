package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/registry"
)

// ErrInvalidActivity is returned for activity files that cannot drive a session.
var ErrInvalidActivity = errors.New("invalid activity")

// ActivityFile is the TOML layout of one activity.
type ActivityFile struct {
	ID            string           `toml:"id"`
	Name          string           `toml:"name"`
	Kind          string           `toml:"kind"`
	PenaltyBaseMs *int64           `toml:"penalty-base-ms,omitempty"`
	Interval      *IntervalFile    `toml:"interval,omitempty"`
	Checkpoints   []CheckpointFile `toml:"checkpoints,omitempty"`
	Criteria      []CriterionFile  `toml:"criteria,omitempty"`
	Students      []StudentFile    `toml:"students"`
}

// IntervalFile is the [interval] table.
type IntervalFile struct {
	Step             float64 `toml:"step"`
	UnitsPerInterval float64 `toml:"units-per-interval"`
	IntervalCount    int     `toml:"interval-count"`
}

// CheckpointFile is one [[checkpoints]] entry.
type CheckpointFile struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
	Tier  int    `toml:"tier"`
}

// CriterionFile is one [[criteria]] entry.
type CriterionFile struct {
	ID      string   `toml:"id"`
	Label   string   `toml:"label"`
	Kind    string   `toml:"kind"`
	Max     int      `toml:"max,omitempty"`
	Choices []string `toml:"choices,omitempty"`
}

// StudentFile is one [[students]] entry. Interval fields override the
// activity target for that student.
type StudentFile struct {
	ID               string   `toml:"id"`
	Name             string   `toml:"name"`
	Group            string   `toml:"group,omitempty"`
	Step             *float64 `toml:"step,omitempty"`
	UnitsPerInterval *float64 `toml:"units-per-interval,omitempty"`
	IntervalCount    *int     `toml:"interval-count,omitempty"`
}

// ActivityDefinition is a decoded and validated activity file.
type ActivityDefinition struct {
	Activity  model.Activity
	Roster    []model.RosterEntry
	Overrides []model.SubjectConfig
}

// LoadActivity reads and validates an activity file.
func LoadActivity(path string) (ActivityDefinition, error) {
	var file ActivityFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return ActivityDefinition{}, fmt.Errorf("failed to decode activity %s: %w", path, err)
	}
	if file.ID == "" {
		file.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return file.Definition()
}

// Definition converts the file into engine types.
func (f ActivityFile) Definition() (ActivityDefinition, error) {
	kind, ok := model.ParseEngineKind(f.Kind)
	if !ok {
		return ActivityDefinition{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, f.Kind)
	}
	if strings.TrimSpace(f.ID) == "" {
		return ActivityDefinition{}, fmt.Errorf("%w: id is empty", ErrInvalidActivity)
	}
	activity := model.Activity{
		ID:   f.ID,
		Name: f.Name,
		Kind: kind,
	}
	if activity.Name == "" {
		activity.Name = f.ID
	}
	if f.PenaltyBaseMs != nil {
		activity.PenaltyBaseMs = *f.PenaltyBaseMs
	}
	if f.Interval != nil {
		activity.Interval = model.IntervalTarget{
			UnitsPerInterval: f.Interval.UnitsPerInterval,
			IntervalCount:    f.Interval.IntervalCount,
			StepSize:         f.Interval.Step,
		}
	}
	for _, cp := range f.Checkpoints {
		activity.Checkpoints = append(activity.Checkpoints, model.CheckpointDefinition{ID: cp.ID, Label: cp.Label, Tier: cp.Tier})
	}
	for _, c := range f.Criteria {
		criterion := model.Criterion{ID: c.ID, Label: c.Label, Kind: model.ObservationKind(c.Kind), Max: c.Max, Choices: c.Choices}
		if err := registry.ValidateCriterion(criterion); err != nil {
			return ActivityDefinition{}, fmt.Errorf("%w: criterion %q: %w", ErrInvalidActivity, c.ID, err)
		}
		activity.Criteria = append(activity.Criteria, criterion)
	}
	if err := registry.ValidateConfig(kind, activity.DefaultConfig(f.ID)); err != nil {
		return ActivityDefinition{}, fmt.Errorf("%w: %w", ErrInvalidActivity, err)
	}

	def := ActivityDefinition{Activity: activity}
	seen := map[string]struct{}{}
	for _, s := range f.Students {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return ActivityDefinition{}, fmt.Errorf("%w: student %q has no id", ErrInvalidActivity, s.Name)
		}
		if _, dup := seen[id]; dup {
			return ActivityDefinition{}, fmt.Errorf("%w: duplicate student id %q", ErrInvalidActivity, id)
		}
		seen[id] = struct{}{}
		name := s.Name
		if name == "" {
			name = id
		}
		def.Roster = append(def.Roster, model.RosterEntry{SubjectID: id, DisplayName: name, GroupLabel: s.Group})

		if s.Step == nil && s.UnitsPerInterval == nil && s.IntervalCount == nil {
			continue
		}
		if kind != model.EngineInterval {
			return ActivityDefinition{}, fmt.Errorf("%w: student %q overrides an interval target on a %s activity", ErrInvalidActivity, id, kind)
		}
		cfg := activity.DefaultConfig(id)
		if s.Step != nil {
			cfg.Interval.StepSize = *s.Step
		}
		if s.UnitsPerInterval != nil {
			cfg.Interval.UnitsPerInterval = *s.UnitsPerInterval
		}
		if s.IntervalCount != nil {
			cfg.Interval.IntervalCount = *s.IntervalCount
		}
		if err := registry.ValidateConfig(kind, cfg); err != nil {
			return ActivityDefinition{}, fmt.Errorf("%w: %w", ErrInvalidActivity, err)
		}
		def.Overrides = append(def.Overrides, cfg)
	}
	return def, nil
}

// EncodeActivity writes f as TOML.
func EncodeActivity(w io.Writer, f ActivityFile) error {
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	return nil
}

// WriteActivity writes f to path, creating parent directories. An existing
// file is not overwritten.
func WriteActivity(path string, f ActivityFile) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create activity dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create activity file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return EncodeActivity(file, f)
}
