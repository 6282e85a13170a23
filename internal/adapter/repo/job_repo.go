package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"descriptly/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new bulk job in queued state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.BulkJob) error {
	optionsJSON, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	query := `
INSERT INTO bulk_jobs (id, merchant_id, product_ids, options, status, total, outcomes)
VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.MerchantID,
		job.ProductIDs,
		optionsJSON,
		job.Status,
		job.Total,
	)
	return err
}

const selectJob = `
SELECT id, merchant_id, product_ids, options, status, total, processed, successful, failed,
       outcomes, cancel_requested, error_message, created_at, updated_at
FROM bulk_jobs
`

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.BulkJob, error) {
	row := r.pool.QueryRow(ctx, selectJob+"WHERE id = $1;", jobID)
	return scanJob(row)
}

// GetForMerchant fetches a job scoped to its owner.
func (r *JobRepositoryPG) GetForMerchant(ctx context.Context, jobID, merchantID string) (*domain.BulkJob, error) {
	row := r.pool.QueryRow(ctx, selectJob+"WHERE id = $1 AND merchant_id = $2;", jobID, merchantID)
	return scanJob(row)
}

// MarkProcessing moves a queued job to processing.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	query := `
UPDATE bulk_jobs
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3;
`
	_, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusProcessing, domain.JobStatusQueued)
	return err
}

// AppendOutcomes records a resolved chunk: the outcome list grows and the
// counters increase in a single statement, keeping counts monotonic.
func (r *JobRepositoryPG) AppendOutcomes(ctx context.Context, jobID string, outcomes []domain.ItemOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	succeeded := 0
	for _, oc := range outcomes {
		if oc.Success {
			succeeded++
		}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}
	query := `
UPDATE bulk_jobs
SET processed  = processed + $2,
    successful = successful + $3,
    failed     = failed + $4,
    outcomes   = outcomes || $5::jsonb,
    updated_at = NOW()
WHERE id = $1;
`
	_, err = r.pool.Exec(ctx, query, jobID, len(outcomes), succeeded, len(outcomes)-succeeded, outcomesJSON)
	return err
}

// Finish moves a job to a terminal status. Terminal rows are never updated
// again.
func (r *JobRepositoryPG) Finish(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	query := `
UPDATE bulk_jobs
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1 AND status IN ($4, $5);
`
	_, err := r.pool.Exec(ctx, query, jobID, status, errMsg, domain.JobStatusQueued, domain.JobStatusProcessing)
	return err
}

// RequestCancel flags a running job for cooperative cancellation. Returns
// ErrJobTerminal when the job already finished and ErrNotFound when it does
// not belong to the merchant.
func (r *JobRepositoryPG) RequestCancel(ctx context.Context, jobID, merchantID string) error {
	query := `
UPDATE bulk_jobs
SET cancel_requested = TRUE, updated_at = NOW()
WHERE id = $1 AND merchant_id = $2 AND status IN ($3, $4);
`
	tag, err := r.pool.Exec(ctx, query, jobID, merchantID, domain.JobStatusQueued, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetForMerchant(ctx, jobID, merchantID); err != nil {
		return err
	}
	return domain.ErrJobTerminal
}

// CancelRequested reports the cancel flag, checked at chunk boundaries.
func (r *JobRepositoryPG) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var flag bool
	err := r.pool.QueryRow(ctx, `SELECT cancel_requested FROM bulk_jobs WHERE id = $1;`, jobID).Scan(&flag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return flag, nil
}

func scanJob(row pgx.Row) (*domain.BulkJob, error) {
	var job domain.BulkJob
	var optionsJSON, outcomesJSON []byte
	if err := row.Scan(
		&job.ID,
		&job.MerchantID,
		&job.ProductIDs,
		&optionsJSON,
		&job.Status,
		&job.Total,
		&job.Processed,
		&job.Successful,
		&job.Failed,
		&outcomesJSON,
		&job.CancelRequested,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(optionsJSON, &job.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &job.Outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes: %w", err)
		}
	}
	return &job, nil
}
