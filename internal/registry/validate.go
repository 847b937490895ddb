package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/gymtrack/internal/model"
)

var (
	// ErrInvalidConfig marks configuration rejected at the edit boundary.
	ErrInvalidConfig = errors.New("invalid subject config")
	// ErrUnknownSubject is returned when a config targets a subject never seen in a roster.
	ErrUnknownSubject = errors.New("unknown subject")
)

// FieldError describes one rejected configuration field.
type FieldError struct {
	Field   string
	Message string
}

// ConfigError lists every field rejected for one subject.
type ConfigError struct {
	SubjectID string
	Fields    []FieldError
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return fmt.Sprintf("invalid config for %q: %s", e.SubjectID, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names so messages match what the config files use.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig checks a subject config for the given engine kind.
func ValidateConfig(kind model.EngineKind, cfg model.SubjectConfig) error {
	cerr := &ConfigError{SubjectID: cfg.SubjectID}
	collect(cerr, validate.Struct(cfg))

	switch kind {
	case model.EngineInterval:
		if cfg.Interval == nil {
			cerr.Fields = append(cerr.Fields, FieldError{Field: "interval", Message: "is required"})
		}
	case model.EngineCheckpoint:
		if len(cfg.Checkpoints) == 0 {
			cerr.Fields = append(cerr.Fields, FieldError{Field: "checkpoints", Message: "must not be empty"})
		}
		seen := map[string]struct{}{}
		for _, def := range cfg.Checkpoints {
			if _, ok := seen[def.ID]; ok {
				cerr.Fields = append(cerr.Fields, FieldError{Field: "checkpoints", Message: fmt.Sprintf("duplicate id %q", def.ID)})
			}
			seen[def.ID] = struct{}{}
		}
	case model.EngineStandard, model.EngineCustom:
	default:
		cerr.Fields = append(cerr.Fields, FieldError{Field: "kind", Message: fmt.Sprintf("unknown engine %q", kind)})
	}

	if len(cerr.Fields) == 0 {
		return nil
	}
	return cerr
}

// ValidateCriterion checks one observation criterion.
func ValidateCriterion(c model.Criterion) error {
	cerr := &ConfigError{SubjectID: c.ID}
	collect(cerr, validate.Struct(c))
	if c.Kind == model.ObservationRating && c.Max < 1 {
		cerr.Fields = append(cerr.Fields, FieldError{Field: "max", Message: "must be >= 1 for ratings"})
	}
	if c.Kind == model.ObservationChoice && len(c.Choices) == 0 {
		cerr.Fields = append(cerr.Fields, FieldError{Field: "choices", Message: "must not be empty"})
	}
	if len(cerr.Fields) == 0 {
		return nil
	}
	return cerr
}

func collect(cerr *ConfigError, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		cerr.Fields = append(cerr.Fields, FieldError{Field: "config", Message: err.Error()})
		return
	}
	for _, fe := range verrs {
		cerr.Fields = append(cerr.Fields, FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be > " + fe.Param()
	case "min":
		return "must be >= " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
