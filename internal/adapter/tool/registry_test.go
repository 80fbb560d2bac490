package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"freightdesk/internal/domain"
)

type plainTool struct {
	name     string
	category string
	params   string
}

func (p *plainTool) Name() string        { return p.name }
func (p *plainTool) Description() string { return "test tool" }
func (p *plainTool) Category() string    { return p.category }

func (p *plainTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: p.name, Parameters: json.RawMessage(p.params)}
}

func (p *plainTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: "ran"}, nil
}

func TestRegistryRejectsDuplicatesAndUncategorized(t *testing.T) {
	r := NewRegistry(testLogger())

	if err := r.Register(&plainTool{name: "a", category: "pricing"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&plainTool{name: "a", category: "pricing"}); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := r.Register(&plainTool{name: "b", category: ""}); err == nil {
		t.Error("uncategorized tool accepted")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(testLogger())
	_, err := r.Get("ghost")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Fatalf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistryWrapsWithSchemaValidation(t *testing.T) {
	r := NewRegistry(testLogger())
	err := r.Register(&plainTool{
		name:     "strict",
		category: "pricing",
		params:   `{"type":"object","properties":{"n":{"type":"number"}},"required":["n"]}`,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tool, err := r.Get("strict")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	res, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Error("schema violation passed through")
	}

	res, err = tool.Execute(context.Background(), json.RawMessage(`{"n":1}`))
	if err != nil || res.IsError {
		t.Errorf("valid params rejected: %v %+v", err, res)
	}

	// Wrapping preserves the policy category.
	if tool.Category() != "pricing" {
		t.Errorf("category = %q after wrapping", tool.Category())
	}
}

func TestRegistrySchemas(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(&plainTool{name: "a", category: "pricing"})
	r.Register(&plainTool{name: "b", category: "shipments"})

	if got := len(r.Schemas()); got != 2 {
		t.Errorf("schemas = %d, want 2", got)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("list = %d, want 2", got)
	}
}
