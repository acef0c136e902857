package domain

import "time"

// Plan represents a user's billing tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// String returns the string representation of the plan.
func (p Plan) String() string {
	return string(p)
}

// IsValid returns true if the plan is a known tier.
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPremium:
		return true
	default:
		return false
	}
}

// ParsePlan normalizes a stored plan value. Unknown values fall back to
// the free tier rather than erroring, so a corrupted row can never grant
// premium access.
func ParsePlan(s string) Plan {
	if Plan(s) == PlanPremium {
		return PlanPremium
	}
	return PlanFree
}

// EffectivePlan is the result of resolving a stored plan against the clock.
type EffectivePlan struct {
	Plan       Plan
	Downgraded bool
}

// ResolveEffectivePlan evaluates time-based expiry for a stored plan.
// A premium plan whose expiry is strictly before now resolves to free with
// Downgraded set, signalling the caller to persist the downgrade. The
// resolution itself never writes anything.
func ResolveEffectivePlan(plan Plan, subscriptionExpiresAt *time.Time, now time.Time) EffectivePlan {
	if plan == PlanPremium && subscriptionExpiresAt != nil && subscriptionExpiresAt.Before(now) {
		return EffectivePlan{Plan: PlanFree, Downgraded: true}
	}
	return EffectivePlan{Plan: plan, Downgraded: false}
}
