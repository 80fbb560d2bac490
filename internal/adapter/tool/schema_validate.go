package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"freightdesk/internal/domain"
)

// SchemaValidatingTool rejects malformed params before the wrapped tool runs.
// Validation failures come back as error ToolResults, not Go errors, so the
// model sees them and can correct the call.
type SchemaValidatingTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation wraps t with parameter validation against its declared
// JSON Schema. Tools without a schema are returned unwrapped. Compilation
// errors are surfaced at registration time rather than on first call.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}
	return &SchemaValidatingTool{inner: t, schema: compiled}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) Category() string          { return s.inner.Category() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

func (s *SchemaValidatingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if msg, ok := s.check(params); !ok {
		return &domain.ToolResult{IsError: true, Content: msg}, nil
	}
	return s.inner.Execute(ctx, params)
}

func (s *SchemaValidatingTool) check(params json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err), false
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Sprintf("schema validation failed: %v", err), false
	}
	return "", true
}
