package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freightdesk/internal/domain"
)

// RevenueBackend abstracts the billing aggregates the report reads.
type RevenueBackend interface {
	Revenue(ctx context.Context, from, to time.Time) (total float64, currency string, err error)
}

// StaticRevenueBackend returns a fixed figure. Used in development; the
// dashboard wires the real billing store here.
type StaticRevenueBackend struct {
	Total    float64
	Currency string
}

func (s StaticRevenueBackend) Revenue(_ context.Context, _, _ time.Time) (float64, string, error) {
	return s.Total, s.Currency, nil
}

type revenueReportParams struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type revenueReport struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// RevenueReportTool aggregates billing revenue over a date range. It is
// registered like any other tool but its category is deny-listed on the
// conversational surface, so the guardrail rejects it there.
type RevenueReportTool struct {
	backend RevenueBackend
	logger  *slog.Logger
}

// NewRevenueReportTool creates the report tool.
func NewRevenueReportTool(backend RevenueBackend, logger *slog.Logger) *RevenueReportTool {
	return &RevenueReportTool{backend: backend, logger: logger}
}

func (t *RevenueReportTool) Name() string { return "revenue_report" }

func (t *RevenueReportTool) Description() string {
	return "Report total billed revenue between two dates (YYYY-MM-DD)."
}

func (t *RevenueReportTool) Category() string { return "analytics" }

func (t *RevenueReportTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"from": {"type": "string", "description": "Range start, YYYY-MM-DD"},
				"to": {"type": "string", "description": "Range end, YYYY-MM-DD"}
			},
			"required": ["from", "to"]
		}`),
	}
}

func (t *RevenueReportTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.revenue_report", t.logger, params,
		func(ctx context.Context, span trace.Span, p revenueReportParams) (any, error) {
			from, err := time.Parse("2006-01-02", p.From)
			if err != nil {
				return nil, fmt.Errorf("invalid from date: %v", err)
			}
			to, err := time.Parse("2006-01-02", p.To)
			if err != nil {
				return nil, fmt.Errorf("invalid to date: %v", err)
			}
			if to.Before(from) {
				return nil, fmt.Errorf("to date precedes from date")
			}

			total, currency, err := t.backend.Revenue(ctx, from, to)
			if err != nil {
				return nil, err
			}
			return &revenueReport{
				From:     p.From,
				To:       p.To,
				Total:    total,
				Currency: currency,
			}, nil
		})
}
