package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/gymtrack/internal/config"
	"github.com/verte-zerg/gymtrack/internal/engine"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/logging"
	"github.com/verte-zerg/gymtrack/internal/stats"
	"github.com/verte-zerg/gymtrack/internal/store"
)

// openSession builds a session for def, resumes the saved snapshot and then
// applies the current roster and per-student overrides from the file.
func openSession(ctx context.Context, def config.ActivityDefinition, repo engine.Repository, penaltyBaseMs int64, logger *slog.Logger, sink export.Sink) (*engine.Session, error) {
	activity := def.Activity
	if activity.PenaltyBaseMs == 0 {
		activity.PenaltyBaseMs = penaltyBaseMs
	}
	opts := []engine.Option{engine.WithLogger(logger)}
	if sink != nil {
		opts = append(opts, engine.WithSink(sink))
	}
	session := engine.NewSession(activity, opts...)
	resumed, err := session.Load(ctx, repo)
	if err != nil {
		return nil, err
	}
	if resumed {
		logger.Info("resumed saved session", "activity", activity.ID, "session", session.ID())
	}
	session.SyncRoster(def.Roster)
	for _, cfg := range def.Overrides {
		if err := session.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply target for %s: %w", cfg.SubjectID, err)
		}
	}
	return session, nil
}

// restoreSession opens the store and the saved session of an activity file
// for read-only commands. The returned func closes the store.
func restoreSession(cmd *cobra.Command, activityPath string) (*engine.Session, func(), error) {
	if err := loadFileConfig(cmd); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, logging.Options{Level: logLevel})
	if err != nil {
		return nil, nil, err
	}
	def, err := config.LoadActivity(activityPath)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	closeStore := func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	session, err := openSession(ctx, def, st, runPenaltyBaseMs, logger, nil)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return session, closeStore, nil
}

func reportRows(subjects []export.Subject) []stats.ReportRow {
	rows := make([]stats.ReportRow, 0, len(subjects))
	for _, sub := range subjects {
		row := stats.ReportRow{
			Name:   sub.Entry.DisplayName,
			Group:  sub.Entry.GroupLabel,
			Status: sub.Progress.Status,
			Stats:  sub.Stats,
		}
		if sub.Config.Interval != nil {
			row.Trend = stats.IntervalTimes(sub.Progress, *sub.Config.Interval)
		}
		rows = append(rows, row)
	}
	return rows
}

