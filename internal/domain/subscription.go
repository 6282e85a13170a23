package domain

import "time"

// Plan enumerates billing tiers in ascending order of entitlement.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether the plan is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// rank orders plans so entitlement comparisons stay explicit.
func (p Plan) rank() int {
	switch p {
	case PlanEnterprise:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether p grants at least the entitlements of other.
func (p Plan) AtLeast(other Plan) bool {
	return p.rank() >= other.rank()
}

// PlanCapabilities is the closed capability set attached to a plan. Adding a
// plan means extending the switch in Capabilities, which the compiler and the
// exhaustiveness test keep honest.
type PlanCapabilities struct {
	MonthlyGenerations int
	MaxBulkSize        int
	AllowedModels      []string
	SEOExtras          bool
}

// Capabilities maps a plan to its capability set. Unknown plans get the
// basic tier, mirroring how an unrecognized billing state degrades.
func Capabilities(p Plan) PlanCapabilities {
	switch p {
	case PlanEnterprise:
		return PlanCapabilities{
			MonthlyGenerations: 10000,
			MaxBulkSize:        1000,
			AllowedModels:      []string{"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo", "gpt-4o"},
			SEOExtras:          true,
		}
	case PlanPro:
		return PlanCapabilities{
			MonthlyGenerations: 1000,
			MaxBulkSize:        200,
			AllowedModels:      []string{"gpt-3.5-turbo", "gpt-4"},
			SEOExtras:          true,
		}
	default:
		return PlanCapabilities{
			MonthlyGenerations: 100,
			MaxBulkSize:        50,
			AllowedModels:      []string{"gpt-3.5-turbo"},
			SEOExtras:          false,
		}
	}
}

// AllowsModel reports whether the plan may use the given model. An empty
// model name means the service default, which every plan may use.
func (c PlanCapabilities) AllowsModel(model string) bool {
	if model == "" {
		return true
	}
	for _, m := range c.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// SubscriptionStatus mirrors the billing platform's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Subscription is the local mirror of the billing platform's record. The
// authoritative copy lives in Stripe; this row is a cache that can drift
// until the next webhook is processed.
type Subscription struct {
	MerchantID           string
	Plan                 Plan
	Status               SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	UpdatedAt            time.Time
}

// Entitled reports whether the subscription currently grants plan features.
func (s *Subscription) Entitled() bool {
	return s != nil && s.Status == SubscriptionActive
}
