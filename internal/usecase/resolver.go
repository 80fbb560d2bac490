package usecase

import (
	"strings"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
)

// Resolver maps a logical model role, optionally narrowed by a business
// domain, to a concrete provider and model name. Resolution walks the
// override layers from most to least specific and never fails: any gap or
// unrecognized value falls through to the next layer and ultimately to the
// built-in default provider and model.
type Resolver struct {
	routing config.ModelRoutingConfig
}

// NewResolver creates a resolver over the given routing tables.
func NewResolver(routing config.ModelRoutingConfig) *Resolver {
	return &Resolver{routing: routing}
}

// Resolve returns the provider and model for a role within a domain.
func (r *Resolver) Resolve(role domain.ModelRole, dom string) (domain.Provider, string) {
	p := r.ResolveProvider(role, dom)
	return p, r.ResolveModel(p, role, dom)
}

// ResolveProvider returns the backend provider for a role within a domain.
// The first override layer naming a recognized provider wins. Unknown
// provider strings are skipped, not treated as errors.
func (r *Resolver) ResolveProvider(role domain.ModelRole, dom string) domain.Provider {
	for _, o := range r.overrides(role, dom) {
		if p, ok := domain.ParseProvider(o.Provider); ok {
			return p
		}
	}
	return domain.DefaultProvider
}

// ResolveModel returns the model name for a provider and role within a
// domain. Override layers are consulted first, then the per-provider role
// defaults table, then the configured default model.
//
// The model walk is independent of provider resolution: a layer whose
// Provider value was skipped as unrecognized can still supply the model
// name. Operators who pin a model in a layer own keeping it valid for
// whichever provider resolution lands on; resolution itself never
// second-guesses the pairing.
func (r *Resolver) ResolveModel(provider domain.Provider, role domain.ModelRole, dom string) string {
	for _, o := range r.overrides(role, dom) {
		if o.Model != "" {
			return o.Model
		}
	}
	if m := lookupFold2(r.routing.Defaults, string(provider), string(role)); m != "" {
		return m
	}
	return r.routing.DefaultModel
}

// FallbackModel returns the model to use on the default provider when the
// routed provider is unavailable. Override layers are skipped on purpose:
// their model names belong to the provider they were written for.
func (r *Resolver) FallbackModel(role domain.ModelRole) string {
	if m := lookupFold2(r.routing.Defaults, string(domain.DefaultProvider), string(role)); m != "" {
		return m
	}
	return r.routing.DefaultModel
}

// overrides returns the override layers for (role, domain) ordered from
// most to least specific: domain+role, role, global.
func (r *Resolver) overrides(role domain.ModelRole, dom string) []config.ModelOverride {
	layers := make([]config.ModelOverride, 0, 3)
	if dom != "" {
		if byRole, ok := lookupFold(r.routing.Domains, dom); ok {
			if o, ok := lookupFold(byRole, string(role)); ok {
				layers = append(layers, o)
			}
		}
	}
	if o, ok := lookupFold(r.routing.Roles, string(role)); ok {
		layers = append(layers, o)
	}
	return append(layers, r.routing.Global)
}

// lookupFold is a case-insensitive map lookup. Config keys come from YAML
// written by operators, so exact casing is not required.
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func lookupFold2(m map[string]map[string]string, outer, inner string) string {
	byInner, ok := lookupFold(m, outer)
	if !ok {
		return ""
	}
	v, _ := lookupFold(byInner, inner)
	return v
}
