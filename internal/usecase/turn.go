package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/tracer"
)

const defaultSubscribeWait = 200 * time.Millisecond

const plannerSystemPrompt = `You are the request manager for a freight quoting assistant.
Classify the user's request. If they want a shipping price, call the
calculate_price tool with whatever origin, destination and weight_kg values
they have provided, leaving missing fields empty. For shipment lookups call
shipment_status. For anything else reply conversationally. If the request is
ambiguous, ask one short clarifying question.`

const finalizerSystemPrompt = `You are a freight quoting assistant. Write a short,
friendly reply to the user based on the conversation and any tool results.
Never mention internal tools or systems.`

const legacySystemPrompt = `You are a helpful assistant for a freight company.
Answer the user's question conversationally.`

const (
	apologyMessage = "Sorry, I'm having trouble answering right now. Please try again in a moment."
	busyMessage    = "You're sending messages a little too quickly. Please wait a moment and try again."
)

// quoteToolName is the tool the planner proposes for pricing requests. Its
// arguments double as the address-collection fields accumulated in session
// state.
const quoteToolName = "calculate_price"

// EngineDeps holds injected dependencies for the turn engine.
type EngineDeps struct {
	Chat      *ChatClient
	Tools     domain.ToolExecutor
	Guardrail *Guardrail
	Executor  *Executor
	Sessions  domain.SessionStore
	Broadcast domain.BroadcastTransport
	Audit     domain.AuditLogger
	Limiter   *ActorLimiter
	Logger    *slog.Logger
	// SubscribeWait bounds the typing channel's wait for an observer.
	SubscribeWait time.Duration
}

// Engine runs conversational turns. It is the only surface the surrounding
// application calls; everything underneath is wired at startup.
type Engine struct {
	deps EngineDeps
}

// NewEngine creates a turn engine with the given dependencies.
func NewEngine(deps EngineDeps) *Engine {
	if deps.SubscribeWait <= 0 {
		deps.SubscribeWait = defaultSubscribeWait
	}
	return &Engine{deps: deps}
}

// RunTurn processes one conversational turn. Anticipated failures (rate
// limits, guardrail rejections, provider outages, tool errors) produce a
// handled response with an explanatory message; the error status is
// reserved for unexpected defects.
func (e *Engine) RunTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.run_turn")
	defer span.End()

	actx := req.Context
	if actx.RequestID == "" {
		actx.RequestID = ulid.Make().String()
	}
	if actx.Target == "" {
		actx.Target = actx.Actor
	}
	ctx = domain.ContextWithActing(ctx, actx)

	// The typing channel is torn down even when the turn is cancelled.
	typing := NewTypingChannel(e.deps.Broadcast, actx.Actor, req.BroadcastNonce, e.deps.SubscribeWait, e.deps.Logger)
	defer typing.Done(context.WithoutCancel(ctx))

	if !e.deps.Limiter.Allow(actx.Actor) {
		e.auditBestEffort(ctx, domain.AuditEvent{
			Type:    domain.AuditRateLimited,
			Outcome: "rejected",
		}, actx)
		return domain.TurnResponse{Status: domain.TurnHandled, Message: busyMessage}, nil
	}

	state, err := e.deps.Sessions.Get(ctx, req.SessionKey)
	if err != nil {
		// Session persistence degrades to a fresh state rather than
		// failing the turn.
		e.deps.Logger.Warn("session load failed", "session", req.SessionKey, "error", err)
		state = &domain.SessionState{Key: req.SessionKey}
	}

	typing.Emit(ctx, domain.TypingThinking, "", string(domain.RoleRequestManager))

	plan, err := e.chat(ctx, domain.RoleRequestManager, domain.DomainQuote, e.planMessages(req), e.deps.Tools.Schemas())
	if err != nil {
		tracer.RecordError(span, err)
		return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}, nil
	}

	proposals := plan.Message.ToolCalls
	e.absorbQuoteFields(state, proposals)

	var toolResults []domain.ToolResult
	hasPricingOptions := false
	if len(proposals) > 0 {
		allowed, authErr := e.deps.Guardrail.Authorize(ctx, proposals, actx)
		if authErr != nil {
			var rej *Rejection
			if errors.As(authErr, &rej) {
				e.saveSession(ctx, state)
				return domain.TurnResponse{Status: domain.TurnHandled, Message: rej.UserMessage()}, nil
			}
			tracer.RecordError(span, authErr)
			return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}, nil
		}

		typing.Emit(ctx, domain.TypingWorking, "", string(domain.RoleRequestManager))
		for _, call := range allowed {
			res := e.deps.Executor.Execute(ctx, call, actx)
			toolResults = append(toolResults, res)
			if call.Name == quoteToolName && !res.IsError {
				hasPricingOptions = true
			}
		}
	}

	input := domain.DecisionInput{
		IsPricingIntent:         state.PricingIntent,
		HasPricingOptions:       hasPricingOptions,
		HasClarificationRequest: isClarification(plan.Message, proposals),
		HasEnoughData:           state.HasEnoughData(),
		HasPartialAddressData:   state.HasPartialAddressData(),
	}
	step := DecideNextStep(input)
	e.deps.Logger.Debug("supervisor decision",
		"step", string(step),
		"pricing_intent", input.IsPricingIntent,
		"has_options", input.HasPricingOptions,
		"enough_data", input.HasEnoughData,
	)

	resp := e.route(ctx, typing, req, actx, state, step, plan, toolResults, &hasPricingOptions)
	resp.ToolResults = toolResults
	resp.Worker = step

	e.saveSession(ctx, state)
	tracer.SetOK(span)
	return resp, nil
}

// route runs the worker the supervisor picked. At most one worker hop per
// turn; workers answer directly instead of re-entering the supervisor.
func (e *Engine) route(ctx context.Context, typing *TypingChannel, req domain.TurnRequest, actx domain.ActingContext, state *domain.SessionState, step domain.NextStep, plan *domain.ChatResponse, toolResults []domain.ToolResult, hasPricingOptions *bool) domain.TurnResponse {
	switch step {
	case domain.StepEnd:
		if len(toolResults) == 0 {
			return domain.TurnResponse{Status: domain.TurnHandled, Message: plan.Message.Content}
		}
		return e.narrate(ctx, typing, req, finalizerSystemPrompt, domain.DomainQuote, toolResults)

	case domain.StepLegacy:
		typing.Emit(ctx, domain.TypingWorking, "", string(domain.StepLegacy))
		reply, err := e.chat(ctx, domain.RoleFinalizer, "", e.workerMessages(req, legacySystemPrompt, toolResults), nil)
		if err != nil {
			return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}
		}
		return domain.TurnResponse{Status: domain.TurnHandled, Message: reply.Message.Content}

	case domain.StepPricing:
		typing.Emit(ctx, domain.TypingWorking, "", string(domain.StepPricing))
		if !*hasPricingOptions {
			res, ok := e.runQuote(ctx, state, actx)
			if !ok {
				return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}
			}
			toolResults = append(toolResults, res)
			*hasPricingOptions = !res.IsError
		}
		return e.narrate(ctx, typing, req, finalizerSystemPrompt, domain.DomainQuote, toolResults)

	case domain.StepAddressCollector:
		typing.Emit(ctx, domain.TypingWorking, "", string(domain.StepAddressCollector))
		prompt := finalizerSystemPrompt + "\nThe user wants a shipping quote but these details are still missing: " +
			strings.Join(missingQuoteFields(state), ", ") + ". Ask for them in one short message."
		reply, err := e.chat(ctx, domain.RoleFinalizer, domain.DomainQuote, e.workerMessages(req, prompt, nil), nil)
		if err != nil {
			return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}
		}
		return domain.TurnResponse{Status: domain.TurnHandled, Message: reply.Message.Content}

	default:
		return domain.TurnResponse{Status: domain.TurnHandled, Message: plan.Message.Content}
	}
}

// narrate issues the follow-up model call that turns tool results into the
// user-facing reply.
func (e *Engine) narrate(ctx context.Context, typing *TypingChannel, req domain.TurnRequest, prompt, dom string, toolResults []domain.ToolResult) domain.TurnResponse {
	typing.Emit(ctx, domain.TypingWorking, "", string(domain.RoleFinalizer))
	reply, err := e.chat(ctx, domain.RoleFinalizer, dom, e.workerMessages(req, prompt, toolResults), nil)
	if err != nil {
		return domain.TurnResponse{Status: domain.TurnHandled, Message: apologyMessage}
	}
	return domain.TurnResponse{Status: domain.TurnHandled, Message: reply.Message.Content}
}

// chat dispatches through the facade and retries once on the default
// provider when the routed one is unavailable.
func (e *Engine) chat(ctx context.Context, role domain.ModelRole, dom string, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	resp, err := e.deps.Chat.Chat(ctx, role, dom, messages, tools)
	if err == nil {
		e.auditLLM(ctx, role, resp)
		return resp, nil
	}
	if errors.Is(err, domain.ErrProviderUnavailable) && e.deps.Chat.ResolvedProvider(role, dom) != domain.DefaultProvider {
		e.deps.Logger.Warn("routed provider unavailable, retrying on default",
			"role", string(role),
			"error", err,
		)
		resp, ferr := e.deps.Chat.ChatFallback(ctx, role, dom, messages, tools)
		if ferr == nil {
			e.auditLLM(ctx, role, resp)
			return resp, nil
		}
		return nil, ferr
	}
	return nil, err
}

// runQuote executes the quote tool directly from accumulated session state,
// still passing through the guardrail. Ordering is a hard invariant: no
// execution without a passed authorization.
func (e *Engine) runQuote(ctx context.Context, state *domain.SessionState, actx domain.ActingContext) (domain.ToolResult, bool) {
	args, err := json.Marshal(map[string]any{
		"origin":      state.Origin,
		"destination": state.Destination,
		"weight_kg":   state.WeightKg,
	})
	if err != nil {
		return domain.ToolResult{}, false
	}
	call := domain.ToolCall{
		ID:        ulid.Make().String(),
		Name:      quoteToolName,
		Arguments: args,
	}
	allowed, err := e.deps.Guardrail.Authorize(ctx, []domain.ToolCall{call}, actx)
	if err != nil || len(allowed) != 1 {
		return domain.ToolResult{}, false
	}
	return e.deps.Executor.Execute(ctx, allowed[0], actx), true
}

// absorbQuoteFields copies address fields from a proposed quote call into
// session state. The values came from the user's own message, so they are
// kept even if the batch is later rejected.
func (e *Engine) absorbQuoteFields(state *domain.SessionState, proposals []domain.ToolCall) {
	for _, p := range proposals {
		if p.Name != quoteToolName {
			continue
		}
		state.PricingIntent = true
		var args struct {
			Origin      string  `json:"origin"`
			Destination string  `json:"destination"`
			WeightKg    float64 `json:"weight_kg"`
		}
		if err := json.Unmarshal(p.Arguments, &args); err != nil {
			e.deps.Logger.Debug("unparseable quote arguments", "error", err)
			continue
		}
		if args.Origin != "" {
			state.Origin = args.Origin
		}
		if args.Destination != "" {
			state.Destination = args.Destination
		}
		if args.WeightKg > 0 {
			state.WeightKg = args.WeightKg
		}
	}
}

func (e *Engine) planMessages(req domain.TurnRequest) []domain.Message {
	msgs := make([]domain.Message, 0, len(req.History)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: plannerSystemPrompt})
	msgs = append(msgs, req.History...)
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: time.Now()})
}

func (e *Engine) workerMessages(req domain.TurnRequest, prompt string, toolResults []domain.ToolResult) []domain.Message {
	msgs := make([]domain.Message, 0, len(req.History)+len(toolResults)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: prompt})
	msgs = append(msgs, req.History...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: time.Now()})
	for _, res := range toolResults {
		msgs = append(msgs, domain.Message{
			Role:    domain.RoleTool,
			Content: res.Content,
			ToolCalls: []domain.ToolCall{{
				ID: res.ToolCallID,
			}},
			Timestamp: time.Now(),
		})
	}
	return msgs
}

func (e *Engine) saveSession(ctx context.Context, state *domain.SessionState) {
	state.UpdatedAt = time.Now().UTC()
	if err := e.deps.Sessions.Save(ctx, state); err != nil {
		e.deps.Logger.Warn("session save failed", "session", state.Key, "error", err)
	}
}

// auditLLM records a completed model call. Best effort.
func (e *Engine) auditLLM(ctx context.Context, role domain.ModelRole, resp *domain.ChatResponse) {
	actx := domain.ActingFromContext(ctx)
	e.auditBestEffort(ctx, domain.AuditEvent{
		Type:    domain.AuditLLMCall,
		Outcome: "ok",
		Detail: map[string]string{
			"role":         string(role),
			"model":        resp.Model,
			"total_tokens": fmt.Sprintf("%d", resp.Usage.TotalTokens),
		},
	}, actx)
}

func (e *Engine) auditBestEffort(ctx context.Context, event domain.AuditEvent, actx domain.ActingContext) {
	event.ID = ulid.Make().String()
	event.Timestamp = time.Now().UTC()
	event.Actor = actx.Actor
	event.Target = actx.Target
	event.RequestID = actx.RequestID
	if err := e.deps.Audit.Log(ctx, event); err != nil {
		e.deps.Logger.Error("audit write failed", "type", string(event.Type), "error", err)
	}
}

// missingQuoteFields lists the quote fields not yet collected, in a fixed
// order for prompt stability.
func missingQuoteFields(state *domain.SessionState) []string {
	var missing []string
	if state.Origin == "" {
		missing = append(missing, "origin")
	}
	if state.Destination == "" {
		missing = append(missing, "destination")
	}
	if state.WeightKg <= 0 {
		missing = append(missing, "weight in kg")
	}
	return missing
}

// isClarification reports whether the planner answered with a question
// instead of tool proposals. A question is itself a terminal turn output.
func isClarification(msg domain.Message, proposals []domain.ToolCall) bool {
	if len(proposals) > 0 {
		return false
	}
	return strings.Contains(msg.Content, "?")
}
