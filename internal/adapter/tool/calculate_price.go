package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
	"freightdesk/internal/infra/tracer"
)

// PriceOption is one courier offer for a lane and weight.
type PriceOption struct {
	Service      string  `json:"service"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DeliveryDays int     `json:"delivery_days"`
}

// Quote is the full result of a price calculation.
type Quote struct {
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	WeightKg    float64       `json:"weight_kg"`
	Options     []PriceOption `json:"options"`
}

type calculatePriceParams struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	WeightKg    float64 `json:"weight_kg"`
}

// CalculatePriceTool computes shipping quotes from the configured price
// table. Lane-specific rates override the flat rate when both endpoints
// match.
type CalculatePriceTool struct {
	pricing config.PricingConfig
	logger  *slog.Logger
}

// NewCalculatePriceTool creates the quote tool.
func NewCalculatePriceTool(pricing config.PricingConfig, logger *slog.Logger) *CalculatePriceTool {
	return &CalculatePriceTool{pricing: pricing, logger: logger}
}

func (t *CalculatePriceTool) Name() string { return "calculate_price" }

func (t *CalculatePriceTool) Description() string {
	return "Calculate shipping price options for a parcel given origin, destination and weight in kilograms."
}

func (t *CalculatePriceTool) Category() string { return "pricing" }

func (t *CalculatePriceTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"origin": {"type": "string", "description": "Origin city or postal code"},
				"destination": {"type": "string", "description": "Destination city or postal code"},
				"weight_kg": {"type": "number", "minimum": 0, "description": "Parcel weight in kilograms"}
			},
			"required": ["origin", "destination", "weight_kg"]
		}`),
	}
}

func (t *CalculatePriceTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.calculate_price", t.logger, params,
		func(ctx context.Context, span trace.Span, p calculatePriceParams) (any, error) {
			if p.Origin == "" || p.Destination == "" {
				return nil, fmt.Errorf("origin and destination are required")
			}
			if p.WeightKg <= 0 {
				return nil, fmt.Errorf("weight_kg must be positive")
			}
			span.SetAttributes(
				tracer.StringAttr("quote.origin", p.Origin),
				tracer.StringAttr("quote.destination", p.Destination),
			)

			base, perKg := t.rates(p.Origin, p.Destination)
			standard := round2(base + perKg*p.WeightKg)
			return &Quote{
				Origin:      p.Origin,
				Destination: p.Destination,
				WeightKg:    p.WeightKg,
				Options: []PriceOption{
					{Service: "standard", Price: standard, Currency: t.pricing.Currency, DeliveryDays: 3},
					{Service: "express", Price: round2(standard * 1.6), Currency: t.pricing.Currency, DeliveryDays: 1},
				},
			}, nil
		})
}

// rates returns the base fee and per-kg rate for a lane, preferring an
// exact lane match over the flat table.
func (t *CalculatePriceTool) rates(origin, destination string) (base, perKg float64) {
	for _, lane := range t.pricing.Lanes {
		if strings.EqualFold(lane.Origin, origin) && strings.EqualFold(lane.Destination, destination) {
			return lane.BaseFee, lane.PerKg
		}
	}
	return t.pricing.BaseFee, t.pricing.PerKg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
