// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/gymtrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Store wraps SQLite access for session snapshots and results.
type Store struct {
	db *sql.DB
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	ActivityID string
	SubjectID  string
	Since      *time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			subject_id TEXT NOT NULL,
			activity_id TEXT NOT NULL,
			day TEXT NOT NULL,
			id TEXT NOT NULL,
			engine_kind TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			PRIMARY KEY (subject_id, activity_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS result_metrics (
			subject_id TEXT NOT NULL,
			activity_id TEXT NOT NULL,
			day TEXT NOT NULL,
			name TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (subject_id, activity_id, day, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_results_activity ON results(activity_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return value, true, nil
}

// Save stores value under key, replacing any previous value.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Emit stores a result record. It makes Store a result sink.
func (s *Store) Emit(ctx context.Context, rec model.ResultRecord) error {
	return s.UpsertResult(ctx, rec)
}

// UpsertResult inserts or replaces the result of a subject for an activity
// and day, metrics included.
func (s *Store) UpsertResult(ctx context.Context, rec model.ResultRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	day := rec.Day()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (subject_id, activity_id, day, id, engine_kind, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id, activity_id, day) DO UPDATE SET
			id = excluded.id,
			engine_kind = excluded.engine_kind,
			completed_at = excluded.completed_at`,
		rec.SubjectID, rec.ActivityID, day, rec.ID, string(rec.EngineKind),
		rec.CompletedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM result_metrics WHERE subject_id = ? AND activity_id = ? AND day = ?`,
		rec.SubjectID, rec.ActivityID, day)
	if err != nil {
		return fmt.Errorf("failed to clear result metrics: %w", err)
	}

	if len(rec.Metrics) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO result_metrics (subject_id, activity_id, day, name, value)
			 VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for name, value := range rec.Metrics {
			if _, err = stmt.ExecContext(ctx, rec.SubjectID, rec.ActivityID, day, name, value); err != nil {
				return fmt.Errorf("failed to insert metric %q: %w", name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// ListResults returns stored results ordered by completion time.
func (s *Store) ListResults(ctx context.Context, filter ResultFilter) ([]model.ResultRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ActivityID != "" {
		clauses = append(clauses, "r.activity_id = ?")
		args = append(args, filter.ActivityID)
	}
	if filter.SubjectID != "" {
		clauses = append(clauses, "r.subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "r.completed_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT r.subject_id, r.activity_id, r.day, r.id, r.engine_kind, r.completed_at, m.name, m.value
		FROM results r
		LEFT JOIN result_metrics m
			ON m.subject_id = r.subject_id AND m.activity_id = r.activity_id AND m.day = r.day
		WHERE %s
		ORDER BY r.completed_at ASC, r.subject_id ASC, r.activity_id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.ResultRecord
	index := map[string]int{}
	for rows.Next() {
		var rec model.ResultRecord
		var day, kind, completedAt string
		var name sql.NullString
		var value sql.NullFloat64
		if err := rows.Scan(&rec.SubjectID, &rec.ActivityID, &day, &rec.ID, &kind, &completedAt, &name, &value); err != nil {
			return nil, err
		}
		key := rec.SubjectID + "\x00" + rec.ActivityID + "\x00" + day
		i, ok := index[key]
		if !ok {
			parsed, err := time.Parse(timeLayout, completedAt)
			if err != nil {
				return nil, err
			}
			rec.CompletedAt = parsed
			rec.EngineKind = model.EngineKind(kind)
			rec.Metrics = map[string]float64{}
			results = append(results, rec)
			i = len(results) - 1
			index[key] = i
		}
		if name.Valid && value.Valid {
			results[i].Metrics[name.String] = value.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
