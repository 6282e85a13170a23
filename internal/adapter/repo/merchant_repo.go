package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"descriptly/internal/domain"
)

// MerchantRepositoryPG implements domain.MerchantRepository.
type MerchantRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMerchantRepository creates a new merchant repository backed by PostgreSQL.
func NewMerchantRepository(pool *pgxpool.Pool) *MerchantRepositoryPG {
	return &MerchantRepositoryPG{pool: pool}
}

const selectMerchant = `
SELECT id, email, shop_domain, shopify_token, stripe_customer_id, plan, created_at, updated_at
FROM merchants
`

// GetByID fetches a merchant by identifier.
func (r *MerchantRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	return scanMerchant(r.pool.QueryRow(ctx, selectMerchant+"WHERE id = $1;", id))
}

// GetByEmail fetches a merchant by email.
func (r *MerchantRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	return scanMerchant(r.pool.QueryRow(ctx, selectMerchant+"WHERE email = $1;", email))
}

// GetByShopDomain fetches a merchant by their store domain, used when
// resolving inbound store webhooks.
func (r *MerchantRepositoryPG) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Merchant, error) {
	return scanMerchant(r.pool.QueryRow(ctx, selectMerchant+"WHERE shop_domain = $1;", shopDomain))
}

// GetByStripeCustomer fetches a merchant from their billing customer ID,
// used when resolving inbound billing webhooks.
func (r *MerchantRepositoryPG) GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Merchant, error) {
	return scanMerchant(r.pool.QueryRow(ctx, selectMerchant+"WHERE stripe_customer_id = $1;", customerID))
}

// SetStripeCustomer links the billing customer to the merchant.
func (r *MerchantRepositoryPG) SetStripeCustomer(ctx context.Context, merchantID, customerID string) error {
	query := `
UPDATE merchants
SET stripe_customer_id = $2, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, merchantID, customerID)
	return err
}

// SetPlan assigns a plan tier.
func (r *MerchantRepositoryPG) SetPlan(ctx context.Context, merchantID string, plan domain.Plan) error {
	query := `
UPDATE merchants
SET plan = $2, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, merchantID, plan)
	return err
}

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := row.Scan(
		&m.ID,
		&m.Email,
		&m.ShopDomain,
		&m.ShopifyToken,
		&m.StripeCustomerID,
		&m.Plan,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
