package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepositoryPG implements domain.UsageRepository with a per-day counter
// table upserted on write.
type UsageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUsageRepository constructs the repository.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepositoryPG {
	return &UsageRepositoryPG{pool: pool}
}

// Increment adds generation counts for the given day.
func (r *UsageRepositoryPG) Increment(ctx context.Context, merchantID, day string, generations int) error {
	query := `
INSERT INTO generation_usage (merchant_id, day, generations)
VALUES ($1, $2, $3)
ON CONFLICT (merchant_id, day) DO UPDATE SET
    generations = generation_usage.generations + EXCLUDED.generations;
`
	_, err := r.pool.Exec(ctx, query, merchantID, day, generations)
	return err
}

// TotalSince sums generations from the given day onward, used for monthly
// quota gating.
func (r *UsageRepositoryPG) TotalSince(ctx context.Context, merchantID string, from time.Time) (int, error) {
	query := `
SELECT COALESCE(SUM(generations), 0)
FROM generation_usage
WHERE merchant_id = $1 AND day >= $2;
`
	var total int
	err := r.pool.QueryRow(ctx, query, merchantID, from.Format("2006-01-02")).Scan(&total)
	return total, err
}
