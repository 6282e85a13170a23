package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepositoryPG implements domain.WebhookEventRepository. The
// (provider, event_id) unique constraint makes replayed deliveries no-ops.
type WebhookEventRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepository constructs the repository.
func NewWebhookEventRepository(pool *pgxpool.Pool) *WebhookEventRepositoryPG {
	return &WebhookEventRepositoryPG{pool: pool}
}

// Insert records a delivery, reporting false when the event was seen before.
func (r *WebhookEventRepositoryPG) Insert(ctx context.Context, provider, eventID, eventType string) (bool, error) {
	query := `
INSERT INTO webhook_events (provider, event_id, event_type)
VALUES ($1, $2, $3)
ON CONFLICT (provider, event_id) DO NOTHING;
`
	tag, err := r.pool.Exec(ctx, query, provider, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
