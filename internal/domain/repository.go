package domain

import (
	"context"
	"time"
)

// MerchantRepository defines access methods for merchant accounts.
type MerchantRepository interface {
	GetByID(ctx context.Context, id string) (*Merchant, error)
	GetByEmail(ctx context.Context, email string) (*Merchant, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*Merchant, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*Merchant, error)
	SetStripeCustomer(ctx context.Context, merchantID, customerID string) error
	SetPlan(ctx context.Context, merchantID string, plan Plan) error
}

// ProductRepository persists the local product mirror.
type ProductRepository interface {
	UpsertAll(ctx context.Context, merchantID string, products []Product) error
	ListByMerchant(ctx context.Context, merchantID string) ([]Product, error)
	GetByID(ctx context.Context, merchantID, productID string) (*Product, error)
	UpdateBody(ctx context.Context, merchantID, productID, bodyHTML string) error
	Delete(ctx context.Context, merchantID, productID string) error
}

// JobRepository persists bulk generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *BulkJob) error
	GetByID(ctx context.Context, jobID string) (*BulkJob, error)
	GetForMerchant(ctx context.Context, jobID, merchantID string) (*BulkJob, error)
	MarkProcessing(ctx context.Context, jobID string) error
	// AppendOutcomes adds a resolved chunk to the job: counts increase by the
	// chunk's totals and the outcome list grows, in one statement.
	AppendOutcomes(ctx context.Context, jobID string, outcomes []ItemOutcome) error
	Finish(ctx context.Context, jobID string, status JobStatus, errMsg string) error
	RequestCancel(ctx context.Context, jobID, merchantID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
}

// SubscriptionRepository persists the billing mirror.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *Subscription) error
	GetByMerchant(ctx context.Context, merchantID string) (*Subscription, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*Subscription, error)
}

// UsageRepository tracks per-day generation counters for quota gating.
type UsageRepository interface {
	Increment(ctx context.Context, merchantID, day string, generations int) error
	TotalSince(ctx context.Context, merchantID string, from time.Time) (int, error)
}

// WebhookEventRepository deduplicates inbound webhook deliveries. Insert
// reports false when the provider event was already recorded.
type WebhookEventRepository interface {
	Insert(ctx context.Context, provider, eventID, eventType string) (bool, error)
}
