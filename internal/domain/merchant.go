package domain

import "time"

// Merchant represents a store owner account within the platform.
type Merchant struct {
	ID               string
	Email            string
	ShopDomain       string
	ShopifyToken     string
	StripeCustomerID string
	Plan             Plan
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
