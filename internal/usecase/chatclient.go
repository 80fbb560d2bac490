package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/tracer"
)

// BackendRegistry resolves a provider enum to its chat backend.
type BackendRegistry interface {
	Get(provider domain.Provider) (domain.LLMProvider, error)
}

// ChatClient is the single facade through which every component issues a
// model call. Callers name a role and a business domain; the client resolves
// the concrete provider and model, dispatches to the matching backend, and
// guarantees that any failure surfaces as one of the shared error
// categories. Nothing provider-specific escapes this boundary.
type ChatClient struct {
	resolver *Resolver
	backends BackendRegistry
	logger   *slog.Logger
}

// NewChatClient creates a chat client over a resolver and backend registry.
func NewChatClient(resolver *Resolver, backends BackendRegistry, logger *slog.Logger) *ChatClient {
	return &ChatClient{
		resolver: resolver,
		backends: backends,
		logger:   logger,
	}
}

// Chat resolves (role, domain) to a provider and model and issues the call.
func (c *ChatClient) Chat(ctx context.Context, role domain.ModelRole, dom string, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	provider, model := c.resolver.Resolve(role, dom)
	return c.dispatch(ctx, provider, model, role, messages, tools)
}

// ChatFallback issues the call on the default provider with its resolved
// model, ignoring routing overrides. Used to retry a turn when the routed
// provider is unavailable.
func (c *ChatClient) ChatFallback(ctx context.Context, role domain.ModelRole, dom string, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	provider := domain.DefaultProvider
	model := c.resolver.FallbackModel(role)
	return c.dispatch(ctx, provider, model, role, messages, tools)
}

// ResolvedProvider reports which provider a (role, domain) pair routes to.
func (c *ChatClient) ResolvedProvider(role domain.ModelRole, dom string) domain.Provider {
	return c.resolver.ResolveProvider(role, dom)
}

func (c *ChatClient) dispatch(ctx context.Context, provider domain.Provider, model string, role domain.ModelRole, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "chatclient.dispatch")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("llm.provider", string(provider)),
		tracer.StringAttr("llm.model", model),
		tracer.StringAttr("llm.role", string(role)),
	)

	backend, err := c.backends.Get(provider)
	if err != nil {
		// A resolvable provider with no registered backend is a wiring
		// gap. Callers see it as an unavailable provider.
		err = fmt.Errorf("%w: no backend for provider %q", domain.ErrProviderUnavailable, provider)
		tracer.RecordError(span, err)
		return nil, err
	}

	resp, err := backend.Chat(ctx, domain.ChatRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		err = normalizeChatErr(err)
		tracer.RecordError(span, err)
		c.logger.Warn("chat call failed",
			"provider", string(provider),
			"model", model,
			"role", string(role),
			"error", err,
		)
		return nil, err
	}

	tracer.SetOK(span)
	return resp, nil
}

// normalizeChatErr collapses backend errors into the closed taxonomy. The
// adapters already map their wire errors; anything unrecognized becomes an
// unavailable provider.
func normalizeChatErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrRateLimit),
		errors.Is(err, domain.ErrAuthInvalid),
		errors.Is(err, domain.ErrContextOverflow),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
}
