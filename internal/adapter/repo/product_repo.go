package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"descriptly/internal/domain"
)

// ProductRepositoryPG implements domain.ProductRepository.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new product mirror repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// UpsertAll refreshes mirror rows for a batch of products.
func (r *ProductRepositoryPG) UpsertAll(ctx context.Context, merchantID string, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	query := `
INSERT INTO products (id, merchant_id, title, vendor, product_type, tags, body_html, synced_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (merchant_id, id) DO UPDATE SET
    title        = EXCLUDED.title,
    vendor       = EXCLUDED.vendor,
    product_type = EXCLUDED.product_type,
    tags         = EXCLUDED.tags,
    body_html    = EXCLUDED.body_html,
    synced_at    = NOW();
`
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(query, p.ID, merchantID, p.Title, p.Vendor, p.ProductType, p.Tags, p.BodyHTML)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()
	for range products {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const selectProduct = `
SELECT id, merchant_id, title, vendor, product_type, tags, body_html, synced_at
FROM products
`

// ListByMerchant returns the merchant's full mirror.
func (r *ProductRepositoryPG) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+"WHERE merchant_id = $1 ORDER BY id;", merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Title, &p.Vendor, &p.ProductType, &p.Tags, &p.BodyHTML, &p.SyncedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID fetches one mirror row.
func (r *ProductRepositoryPG) GetByID(ctx context.Context, merchantID, productID string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, selectProduct+"WHERE merchant_id = $1 AND id = $2;", merchantID, productID)
	var p domain.Product
	if err := row.Scan(&p.ID, &p.MerchantID, &p.Title, &p.Vendor, &p.ProductType, &p.Tags, &p.BodyHTML, &p.SyncedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateBody overwrites the mirrored description after a successful push.
func (r *ProductRepositoryPG) UpdateBody(ctx context.Context, merchantID, productID, bodyHTML string) error {
	query := `
UPDATE products
SET body_html = $3, synced_at = NOW()
WHERE merchant_id = $1 AND id = $2;
`
	_, err := r.pool.Exec(ctx, query, merchantID, productID, bodyHTML)
	return err
}

// Delete drops a mirror row when the store reports the product deleted.
func (r *ProductRepositoryPG) Delete(ctx context.Context, merchantID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE merchant_id = $1 AND id = $2;`, merchantID, productID)
	return err
}
