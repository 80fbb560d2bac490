package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/tracer"
)

// Executor runs tool calls that already passed the guardrail. Every
// failure mode, including a panicking tool, is normalized into a
// ToolResult so the narration step above always has something to work
// with. Raw errors never reach the end user.
type Executor struct {
	tools  domain.ToolExecutor
	audit  domain.AuditLogger
	logger *slog.Logger
}

// NewExecutor creates an executor over a tool registry.
func NewExecutor(tools domain.ToolExecutor, audit domain.AuditLogger, logger *slog.Logger) *Executor {
	return &Executor{tools: tools, audit: audit, logger: logger}
}

// Execute runs one validated tool call and always returns a result.
func (e *Executor) Execute(ctx context.Context, call domain.ToolCall, actx domain.ActingContext) (result domain.ToolResult) {
	ctx, span := tracer.StartSpan(ctx, "executor.execute")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("tool.name", call.Name))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				"tool", call.Name,
				"panic", r,
			)
			result = failedResult(call.ID, fmt.Errorf("tool %s panicked", call.Name))
			tracer.RecordError(span, fmt.Errorf("panic: %v", r))
		}
		e.writeAudit(ctx, call, actx, result, time.Since(start))
	}()

	tool, err := e.tools.Get(call.Name)
	if err != nil {
		tracer.RecordError(span, err)
		return failedResult(call.ID, err)
	}

	res, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		tracer.RecordError(span, err)
		e.logger.Warn("tool execution failed",
			"tool", call.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return failedResult(call.ID, err)
	}

	tracer.SetOK(span)
	e.logger.Debug("tool executed",
		"tool", call.Name,
		"duration", time.Since(start),
	)
	res.ToolCallID = call.ID
	return *res
}

// failedResult converts an execution error into a result the model can
// narrate. The message is generic on purpose.
func failedResult(callID string, err error) domain.ToolResult {
	return domain.ToolResult{
		ToolCallID: callID,
		Content:    fmt.Sprintf("operation failed: %v", domain.ErrorCodeOf(err)),
		IsError:    true,
	}
}

// writeAudit records the execution attempt. Best effort: a failed write is
// logged and the turn continues.
func (e *Executor) writeAudit(ctx context.Context, call domain.ToolCall, actx domain.ActingContext, result domain.ToolResult, took time.Duration) {
	outcome := "ok"
	if result.IsError {
		outcome = "error"
	}
	event := domain.AuditEvent{
		ID:        ulid.Make().String(),
		Timestamp: time.Now().UTC(),
		Type:      domain.AuditToolExec,
		Actor:     actx.Actor,
		Target:    actx.Target,
		RequestID: actx.RequestID,
		Outcome:   outcome,
		Detail: map[string]string{
			"tool":        call.Name,
			"duration_ms": fmt.Sprintf("%d", took.Milliseconds()),
		},
	}
	if err := e.audit.Log(ctx, event); err != nil {
		e.logger.Error("audit write failed for tool execution",
			"tool", call.Name,
			"error", err,
		)
	}
}
