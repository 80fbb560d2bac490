package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditLLMCall           AuditEventType = "llm_call"
	AuditToolExec          AuditEventType = "tool_exec"
	AuditGuardrailRejected AuditEventType = "guardrail_rejected"
	AuditRateLimited       AuditEventType = "rate_limited"
)

// AuditEvent represents a single auditable action. Events are write-once
// and append-only; the store never mutates them.
type AuditEvent struct {
	ID        string            `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"type"`
	Detail    map[string]string `json:"detail,omitempty"`

	Actor     string `json:"actor,omitempty"`
	Target    string `json:"target,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

// AuditLogger writes audit events to a persistent log.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}
