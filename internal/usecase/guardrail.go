package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
	"freightdesk/internal/infra/tracer"
)

// RejectionReason names the guardrail rule a tool batch violated.
type RejectionReason string

const (
	ReasonUnknownTool    RejectionReason = "unknown_tool"
	ReasonDeniedCategory RejectionReason = "denied_category"
	ReasonTooManyCalls   RejectionReason = "too_many_calls"
	ReasonMissingContext RejectionReason = "missing_context"
)

// Rejection is the error returned when a batch fails authorization. The
// user-facing message is fixed per reason and never echoes tool names or
// arguments.
type Rejection struct {
	Reason RejectionReason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("guardrail: batch rejected: %s", r.Reason)
}

func (r *Rejection) Unwrap() error { return domain.ErrGuardrailRejected }

// UserMessage returns the safe message shown to the end user.
func (r *Rejection) UserMessage() string {
	switch r.Reason {
	case ReasonTooManyCalls:
		return "I can only perform one operation per message. Please ask for them one at a time."
	case ReasonDeniedCategory:
		return "That operation is not available in this conversation."
	default:
		return "I'm not able to perform that operation."
	}
}

// Guardrail enforces the tool policy: an allow-list snapshot taken from the
// registry at construction, a category deny-list, and a per-turn batch cap.
// Validation is whole-batch: one bad proposal rejects everything. Any
// ambiguity rejects as well; the layer never defaults to allow.
type Guardrail struct {
	// categories maps allowed tool name to its policy category. Read-only
	// after construction, safe to share across turns.
	categories map[string]string
	denied     map[string]struct{}
	maxCalls   int
	audit      domain.AuditLogger
	logger     *slog.Logger
}

// NewGuardrail snapshots the registry's tool set and builds the policy.
func NewGuardrail(tools []domain.Tool, cfg config.GuardrailConfig, audit domain.AuditLogger, logger *slog.Logger) *Guardrail {
	categories := make(map[string]string, len(tools))
	for _, t := range tools {
		categories[t.Name()] = strings.ToLower(strings.TrimSpace(t.Category()))
	}
	denied := make(map[string]struct{}, len(cfg.DeniedCategories))
	for _, c := range cfg.DeniedCategories {
		denied[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &Guardrail{
		categories: categories,
		denied:     denied,
		maxCalls:   cfg.MaxCallsPerTurn,
		audit:      audit,
		logger:     logger,
	}
}

// Authorize validates a proposed tool batch. On success the proposals are
// returned unchanged. On failure it writes exactly one audit event, awaited
// before returning, and the returned error unwraps to a *Rejection.
func (g *Guardrail) Authorize(ctx context.Context, proposals []domain.ToolCall, actx domain.ActingContext) ([]domain.ToolCall, error) {
	ctx, span := tracer.StartSpan(ctx, "guardrail.authorize")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("guardrail.batch_size", len(proposals)))

	if rej := g.check(proposals, actx); rej != nil {
		g.writeRejection(ctx, proposals, actx, rej)
		tracer.RecordError(span, rej)
		return nil, rej
	}

	tracer.SetOK(span)
	return proposals, nil
}

// check runs the policy rules in order, short-circuiting on the first
// violation.
func (g *Guardrail) check(proposals []domain.ToolCall, actx domain.ActingContext) *Rejection {
	if actx.IsZero() {
		return &Rejection{Reason: ReasonMissingContext}
	}
	for _, p := range proposals {
		if _, ok := g.categories[p.Name]; !ok {
			return &Rejection{Reason: ReasonUnknownTool}
		}
	}
	for _, p := range proposals {
		cat := g.categories[p.Name]
		if cat == "" {
			// A tool without a category cannot be checked against the
			// deny-list, so it is not allowed.
			return &Rejection{Reason: ReasonDeniedCategory}
		}
		if _, deny := g.denied[cat]; deny {
			return &Rejection{Reason: ReasonDeniedCategory}
		}
	}
	if len(proposals) > g.maxCalls {
		return &Rejection{Reason: ReasonTooManyCalls}
	}
	return nil
}

// writeRejection records the policy violation. Exactly one event per
// rejected batch, awaited here so the record exists even if the caller
// drops the error. An audit write failure degrades to a log line; it never
// blocks the user-facing response.
func (g *Guardrail) writeRejection(ctx context.Context, proposals []domain.ToolCall, actx domain.ActingContext, rej *Rejection) {
	names := make([]string, len(proposals))
	for i, p := range proposals {
		names[i] = p.Name
	}
	event := domain.AuditEvent{
		ID:        ulid.Make().String(),
		Timestamp: time.Now().UTC(),
		Type:      domain.AuditGuardrailRejected,
		Actor:     actx.Actor,
		Target:    actx.Target,
		RequestID: actx.RequestID,
		Outcome:   string(rej.Reason),
		Detail: map[string]string{
			"tools":      strings.Join(names, ","),
			"batch_size": fmt.Sprintf("%d", len(proposals)),
		},
	}
	if err := g.audit.Log(ctx, event); err != nil {
		g.logger.Error("audit write failed for guardrail rejection",
			"reason", string(rej.Reason),
			"actor", actx.Actor,
			"error", err,
		)
	}
}
