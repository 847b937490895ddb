// Package export maps session state onto result records and export tables.
package export

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/stats"
)

// Sink consumes result records. Implementations upsert by
// (subject, activity, day).
type Sink interface {
	Emit(ctx context.Context, rec model.ResultRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec model.ResultRecord) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, rec model.ResultRecord) error {
	return f(ctx, rec)
}

// MultiSink fans a record out to several sinks. Every sink is tried.
type MultiSink []Sink

// Emit forwards rec to each sink and joins their errors.
func (m MultiSink) Emit(ctx context.Context, rec model.ResultRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ToResultRecord builds the record reported for one subject.
func ToResultRecord(activityID string, kind model.EngineKind, p *model.SubjectProgress, st stats.SubjectStatistics, completedAt time.Time) model.ResultRecord {
	metrics := st.Metrics()
	if p.Status == model.StatusCompleted {
		metrics["completed"] = 1
	} else {
		metrics["completed"] = 0
	}
	if kind == model.EngineInterval {
		metrics["interval_counter"] = float64(p.IntervalCounter)
	}
	return model.ResultRecord{
		ID:          uuid.NewString(),
		SubjectID:   p.SubjectID,
		ActivityID:  activityID,
		EngineKind:  kind,
		Metrics:     metrics,
		CompletedAt: completedAt,
	}
}
