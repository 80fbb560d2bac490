package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/tracer"
)

// Shipment describes one tracked parcel.
type Shipment struct {
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	LastLocation string    `json:"last_location,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ShipmentBackend abstracts shipment lookups. In production this fronts the
// courier-API clients; tests use the in-memory backend.
type ShipmentBackend interface {
	Lookup(ctx context.Context, trackingCode string) (*Shipment, error)
}

// MemoryShipmentBackend is an in-memory backend for testing/development.
type MemoryShipmentBackend struct {
	mu        sync.RWMutex
	shipments map[string]Shipment
}

// NewMemoryShipmentBackend creates an empty in-memory backend.
func NewMemoryShipmentBackend() *MemoryShipmentBackend {
	return &MemoryShipmentBackend{shipments: make(map[string]Shipment)}
}

// Put stores a shipment keyed by its tracking code.
func (m *MemoryShipmentBackend) Put(s Shipment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipments[strings.ToUpper(s.TrackingCode)] = s
}

func (m *MemoryShipmentBackend) Lookup(_ context.Context, trackingCode string) (*Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shipments[strings.ToUpper(trackingCode)]
	if !ok {
		return nil, fmt.Errorf("no shipment with tracking code %q", trackingCode)
	}
	return &s, nil
}

type shipmentStatusParams struct {
	TrackingCode string `json:"tracking_code"`
}

// ShipmentStatusTool looks up the current status of a shipment.
type ShipmentStatusTool struct {
	backend ShipmentBackend
	logger  *slog.Logger
}

// NewShipmentStatusTool creates the lookup tool.
func NewShipmentStatusTool(backend ShipmentBackend, logger *slog.Logger) *ShipmentStatusTool {
	return &ShipmentStatusTool{backend: backend, logger: logger}
}

func (t *ShipmentStatusTool) Name() string { return "shipment_status" }

func (t *ShipmentStatusTool) Description() string {
	return "Look up the current status and location of a shipment by its tracking code."
}

func (t *ShipmentStatusTool) Category() string { return "shipments" }

func (t *ShipmentStatusTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tracking_code": {"type": "string", "minLength": 1, "description": "The shipment tracking code"}
			},
			"required": ["tracking_code"]
		}`),
	}
}

func (t *ShipmentStatusTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.shipment_status", t.logger, params,
		func(ctx context.Context, span trace.Span, p shipmentStatusParams) (any, error) {
			code := strings.TrimSpace(p.TrackingCode)
			if code == "" {
				return nil, fmt.Errorf("tracking_code is required")
			}
			span.SetAttributes(tracer.StringAttr("shipment.tracking_code", code))
			return t.backend.Lookup(ctx, code)
		})
}
