package domain

// DecisionInput is the supervisor's view of one turn's progress. It is
// assembled fresh by the caller on every invocation; the supervisor itself
// never reads session state.
type DecisionInput struct {
	IsPricingIntent         bool
	HasPricingOptions       bool
	HasClarificationRequest bool
	HasEnoughData           bool
	HasPartialAddressData   bool
}

// NextStep is the supervisor's routing target for the rest of the turn.
type NextStep string

const (
	// StepEnd terminates the turn: an answer (or clarifying question) is
	// already available.
	StepEnd NextStep = "end"
	// StepLegacy hands off to the non-specialized conversational path.
	StepLegacy NextStep = "legacy"
	// StepPricing routes to the pricing worker.
	StepPricing NextStep = "pricing"
	// StepAddressCollector routes to the address-collection worker.
	StepAddressCollector NextStep = "address_collector"
)
