package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"freightdesk/internal/domain"
)

// SQLiteSessionStore implements domain.SessionStore using SQLite.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrateSessions(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

func migrateSessions(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			key            TEXT PRIMARY KEY,
			pricing_intent INTEGER NOT NULL DEFAULT 0,
			origin         TEXT NOT NULL DEFAULT '',
			destination    TEXT NOT NULL DEFAULT '',
			weight_kg      REAL NOT NULL DEFAULT 0,
			updated_at     TEXT NOT NULL
		)
	`)
	return err
}

// Get returns the state for key, or a fresh zero state if none is stored.
func (s *SQLiteSessionStore) Get(ctx context.Context, key string) (*domain.SessionState, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT key, pricing_intent, origin, destination, weight_kg, updated_at FROM sessions WHERE key = ?", key,
	)

	var (
		state   domain.SessionState
		intent  int
		updated string
	)
	err := row.Scan(&state.Key, &intent, &state.Origin, &state.Destination, &state.WeightKg, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.SessionState{Key: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", key, err)
	}

	state.PricingIntent = intent != 0
	if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
		state.UpdatedAt = t
	}
	return &state, nil
}

// Save upserts the state.
func (s *SQLiteSessionStore) Save(ctx context.Context, state *domain.SessionState) error {
	intent := 0
	if state.PricingIntent {
		intent = 1
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (key, pricing_intent, origin, destination, weight_kg, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			pricing_intent = excluded.pricing_intent,
			origin         = excluded.origin,
			destination    = excluded.destination,
			weight_kg      = excluded.weight_kg,
			updated_at     = excluded.updated_at`,
		state.Key, intent, state.Origin, state.Destination, state.WeightKg,
		state.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session %q: %w", state.Key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
