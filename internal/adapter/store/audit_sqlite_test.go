package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"freightdesk/internal/domain"
)

func newTestAuditLogger(t *testing.T) *SQLiteAuditLogger {
	t.Helper()
	a, err := NewSQLiteAuditLogger(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open audit logger: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAuditLogAndQuery(t *testing.T) {
	a := newTestAuditLogger(t)
	ctx := context.Background()

	events := []domain.AuditEvent{
		{ID: "e1", Type: domain.AuditGuardrailRejected, Actor: "alice", Outcome: "too_many_calls",
			Detail: map[string]string{"batch_size": "4"}},
		{ID: "e2", Type: domain.AuditToolExec, Actor: "alice", Outcome: "ok"},
		{ID: "e3", Type: domain.AuditToolExec, Actor: "bob", Outcome: "ok"},
	}
	for _, ev := range events {
		if err := a.Log(ctx, ev); err != nil {
			t.Fatalf("Log(%s): %v", ev.ID, err)
		}
	}

	got, err := a.Query(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("alice has %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Actor != "alice" {
			t.Errorf("event %s from %q", ev.ID, ev.Actor)
		}
	}

	var rejection *domain.AuditEvent
	for i := range got {
		if got[i].Type == domain.AuditGuardrailRejected {
			rejection = &got[i]
		}
	}
	if rejection == nil {
		t.Fatal("rejection event missing")
	}
	if rejection.Detail["batch_size"] != "4" {
		t.Errorf("detail = %+v", rejection.Detail)
	}
}

func TestAuditDuplicateIDRejected(t *testing.T) {
	a := newTestAuditLogger(t)
	ctx := context.Background()

	if err := a.Log(ctx, domain.AuditEvent{ID: "e1", Type: domain.AuditToolExec}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	// Append-only: an id can never be written twice.
	if err := a.Log(ctx, domain.AuditEvent{ID: "e1", Type: domain.AuditToolExec}); err == nil {
		t.Fatal("duplicate id accepted")
	}
}

func TestAuditPurge(t *testing.T) {
	a := newTestAuditLogger(t)
	ctx := context.Background()

	a.Log(ctx, domain.AuditEvent{ID: "old", Type: domain.AuditToolExec, Actor: "alice",
		Timestamp: time.Now().Add(-48 * time.Hour)})
	a.Log(ctx, domain.AuditEvent{ID: "new", Type: domain.AuditToolExec, Actor: "alice",
		Timestamp: time.Now()})

	removed, err := a.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}

	got, _ := a.Query(ctx, "alice", 10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("remaining = %+v", got)
	}

	// Zero max age keeps everything.
	if removed, _ := a.Purge(ctx, 0); removed != 0 {
		t.Errorf("zero max age purged %d", removed)
	}
}
