package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"descriptly/internal/domain"
)

// SubscriptionRepositoryPG implements domain.SubscriptionRepository.
type SubscriptionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription mirror repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{pool: pool}
}

// Upsert writes the latest known billing state for a merchant.
func (r *SubscriptionRepositoryPG) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query := `
INSERT INTO subscriptions (merchant_id, plan, status, stripe_customer_id, stripe_subscription_id, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (merchant_id) DO UPDATE SET
    plan                   = EXCLUDED.plan,
    status                 = EXCLUDED.status,
    stripe_customer_id     = EXCLUDED.stripe_customer_id,
    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
    updated_at             = NOW();
`
	_, err := r.pool.Exec(ctx, query,
		sub.MerchantID,
		sub.Plan,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
	)
	return err
}

const selectSubscription = `
SELECT merchant_id, plan, status, stripe_customer_id, stripe_subscription_id, updated_at
FROM subscriptions
`

// GetByMerchant fetches the mirror row for a merchant.
func (r *SubscriptionRepositoryPG) GetByMerchant(ctx context.Context, merchantID string) (*domain.Subscription, error) {
	return scanSubscription(r.pool.QueryRow(ctx, selectSubscription+"WHERE merchant_id = $1;", merchantID))
}

// GetByStripeCustomer resolves the mirror row from a billing customer ID,
// used by webhook handling.
func (r *SubscriptionRepositoryPG) GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return scanSubscription(r.pool.QueryRow(ctx, selectSubscription+"WHERE stripe_customer_id = $1;", customerID))
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(
		&s.MerchantID,
		&s.Plan,
		&s.Status,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
