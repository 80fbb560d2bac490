package domain

import "context"

// ActingContext identifies who is driving a turn. It is constructed by the
// calling layer; the core only reads it to stamp audit records.
type ActingContext struct {
	// Actor is the authenticated principal (human or service account).
	Actor string `json:"actor"`
	// Target is the account being acted on; equals Actor unless impersonating.
	Target string `json:"target"`
	// Impersonated is true when Actor acts on behalf of Target.
	Impersonated bool `json:"impersonated"`
	// RequestID correlates audit records and logs for one turn.
	RequestID string `json:"request_id"`
}

// IsZero reports whether the context carries no usable identity.
func (a ActingContext) IsZero() bool { return a.Actor == "" }

type ctxKey string

const actingCtxKey ctxKey = "acting_context"

// ContextWithActing returns a new context carrying the acting identity.
func ContextWithActing(ctx context.Context, actx ActingContext) context.Context {
	return context.WithValue(ctx, actingCtxKey, actx)
}

// ActingFromContext extracts the acting identity from the context.
// Returns a zero ActingContext if not set.
func ActingFromContext(ctx context.Context) ActingContext {
	if v, ok := ctx.Value(actingCtxKey).(ActingContext); ok {
		return v
	}
	return ActingContext{}
}
