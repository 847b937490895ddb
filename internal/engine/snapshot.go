package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/gymtrack/internal/clock"
	"github.com/verte-zerg/gymtrack/internal/model"
)

// ErrActivityMismatch is returned when restoring a snapshot of another activity.
var ErrActivityMismatch = errors.New("snapshot belongs to another activity")

// Repository is the key-value store sessions are persisted through.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Snapshot is the persisted state of a session.
type Snapshot struct {
	SessionID  string                            `json:"session_id"`
	ActivityID string                            `json:"activity_id"`
	SavedAt    time.Time                         `json:"saved_at"`
	Clock      clock.State                       `json:"clock"`
	Roster     []model.RosterEntry               `json:"roster"`
	Progress   map[string]*model.SubjectProgress `json:"progress"`
	Configs    map[string]model.SubjectConfig    `json:"configs"`
}

// SnapshotKey is the repository key of an activity's session.
func SnapshotKey(activityID string) string {
	return "session/" + activityID
}

// Snapshot captures the session, including subjects removed from the roster.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, configs := s.reg.Snapshot()
	return Snapshot{
		SessionID:  s.id,
		ActivityID: s.activity.ID,
		SavedAt:    s.clock.Now(),
		Clock:      s.clock.State(),
		Roster:     append([]model.RosterEntry(nil), s.roster...),
		Progress:   progress,
		Configs:    configs,
	}
}

// Restore replaces the session state with a snapshot. The clock comes back
// stopped at the saved elapsed time.
func (s *Session) Restore(snap Snapshot) error {
	if snap.ActivityID != s.activity.ID {
		return fmt.Errorf("failed to restore session %q: %w", snap.SessionID, ErrActivityMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.SessionID != "" {
		s.id = snap.SessionID
	}
	s.clock.Restore(snap.Clock)
	s.reg.Restore(snap.Progress, snap.Configs)
	s.syncLocked(snap.Roster)
	s.logger.Info("session restored", "activity", snap.ActivityID, "subjects", len(snap.Progress))
	return nil
}

// Save writes a snapshot to repo.
func (s *Session) Save(ctx context.Context, repo Repository) error {
	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := repo.Save(ctx, SnapshotKey(snap.ActivityID), data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load restores the last saved snapshot of the activity, if any.
func (s *Session) Load(ctx context.Context, repo Repository) (bool, error) {
	snap, ok, err := LoadSnapshot(ctx, repo, s.activity.ID)
	if err != nil || !ok {
		return false, err
	}
	if err := s.Restore(snap); err != nil {
		return false, err
	}
	return true, nil
}

// LoadSnapshot reads and decodes an activity's snapshot.
func LoadSnapshot(ctx context.Context, repo Repository, activityID string) (Snapshot, bool, error) {
	data, ok, err := repo.Load(ctx, SnapshotKey(activityID))
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}
