package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"freightdesk/internal/domain"
)

// SQLiteAuditLogger implements domain.AuditLogger on SQLite. Events are
// append-only; nothing here updates or deletes a written row except the
// age-based purge.
type SQLiteAuditLogger struct {
	db *sql.DB
}

// NewSQLiteAuditLogger opens (or creates) a SQLite database at dbPath and
// runs the schema migration.
func NewSQLiteAuditLogger(dbPath string) (*SQLiteAuditLogger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrateAudit(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteAuditLogger{db: db}, nil
}

func migrateAudit(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id         TEXT PRIMARY KEY,
			timestamp  TEXT NOT NULL,
			type       TEXT NOT NULL,
			actor      TEXT NOT NULL DEFAULT '',
			target     TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT '',
			outcome    TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor)
	`)
	return err
}

// Log appends one event.
func (s *SQLiteAuditLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("%w: marshal detail: %v", domain.ErrAuditWrite, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, timestamp, type, actor, target, request_id, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.Format(time.RFC3339Nano), string(event.Type),
		event.Actor, event.Target, event.RequestID, event.Outcome, string(detail),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditWrite, err)
	}
	return nil
}

// Purge deletes events older than maxAge. A zero maxAge keeps everything.
func (s *SQLiteAuditLogger) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return res.RowsAffected()
}

// Query returns events for an actor in reverse chronological order, capped
// at limit. Used by operational tooling, not by the turn path.
func (s *SQLiteAuditLogger) Query(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, type, actor, target, request_id, outcome, detail
		FROM audit_events WHERE actor = ?
		ORDER BY timestamp DESC LIMIT ?`, actor, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			ev     domain.AuditEvent
			ts     string
			detail string
		)
		if err := rows.Scan(&ev.ID, &ts, (*string)(&ev.Type), &ev.Actor, &ev.Target, &ev.RequestID, &ev.Outcome, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			ev.Timestamp = t
		}
		if err := json.Unmarshal([]byte(detail), &ev.Detail); err != nil {
			ev.Detail = nil
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteAuditLogger) Close() error {
	return s.db.Close()
}
