package usecase

import "freightdesk/internal/domain"

// DecideNextStep is the supervisor routing function. It is pure and total:
// every input maps to exactly one step, it touches no stores, and it is
// evaluated fresh on every turn. The caller owns whatever turn state the
// input flags are derived from.
//
// Rules, first match wins:
//  1. Pricing options already computed, the turn is answered.
//  2. A clarifying question is itself a terminal turn output.
//  3. No pricing intent, hand off to the general conversational path.
//  4. Pricing intent with enough data, run the pricing worker.
//  5. Pricing intent, insufficient data, collect the address regardless
//     of how much of it is already present.
func DecideNextStep(in domain.DecisionInput) domain.NextStep {
	switch {
	case in.HasPricingOptions:
		return domain.StepEnd
	case in.HasClarificationRequest:
		return domain.StepEnd
	case !in.IsPricingIntent:
		return domain.StepLegacy
	case in.HasEnoughData:
		return domain.StepPricing
	default:
		return domain.StepAddressCollector
	}
}
