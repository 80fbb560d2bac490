package security

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"freightdesk/internal/domain"
)

func newTestAuditLogger(t *testing.T) (*FileAuditLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	a, err := NewFileAuditLogger(path)
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, path
}

func readLines(t *testing.T, path string) []domain.AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []domain.AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestFileAuditLoggerWritesJSONL(t *testing.T) {
	a, path := newTestAuditLogger(t)
	ctx := context.Background()

	err := a.Log(ctx, domain.AuditEvent{
		ID:        "e1",
		Type:      domain.AuditGuardrailRejected,
		Actor:     "alice",
		Target:    "alice",
		RequestID: "req-1",
		Outcome:   "unknown_tool",
		Detail:    map[string]string{"tools": "ghost"},
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	events := readLines(t, path)
	if len(events) != 1 {
		t.Fatalf("wrote %d lines, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != domain.AuditGuardrailRejected || ev.Actor != "alice" || ev.Outcome != "unknown_tool" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("log permissions = %o, want 0600", perm)
	}
}

func TestFileAuditLoggerRetention(t *testing.T) {
	a, path := newTestAuditLogger(t)
	ctx := context.Background()

	a.Log(ctx, domain.AuditEvent{ID: "old", Type: domain.AuditToolExec,
		Timestamp: time.Now().Add(-48 * time.Hour)})
	a.Log(ctx, domain.AuditEvent{ID: "new", Type: domain.AuditToolExec,
		Timestamp: time.Now()})

	a.SetMaxAge(24 * time.Hour)
	removed, err := a.EnforceRetention(ctx)
	if err != nil {
		t.Fatalf("EnforceRetention: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}

	events := readLines(t, path)
	if len(events) != 1 || events[0].ID != "new" {
		t.Errorf("remaining = %+v", events)
	}

	// The logger keeps working after the rewrite.
	if err := a.Log(ctx, domain.AuditEvent{ID: "post", Type: domain.AuditToolExec}); err != nil {
		t.Fatalf("Log after retention: %v", err)
	}
	if events := readLines(t, path); len(events) != 2 {
		t.Errorf("log has %d events after post-retention write", len(events))
	}
}

func TestFileAuditLoggerRetentionNoPolicy(t *testing.T) {
	a, _ := newTestAuditLogger(t)
	a.Log(context.Background(), domain.AuditEvent{ID: "e1", Type: domain.AuditToolExec,
		Timestamp: time.Now().Add(-1000 * time.Hour)})

	removed, err := a.EnforceRetention(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("no-policy retention = %d, %v", removed, err)
	}
}
