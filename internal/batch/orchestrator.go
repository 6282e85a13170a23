package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"descriptly/internal/domain"
)

// Generator produces one description per product.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error)
}

// Publisher writes a generated description back to the merchant's store.
// The push is an idempotent overwrite.
type Publisher interface {
	PushDescription(ctx context.Context, merchant *domain.Merchant, productID string, desc *domain.GeneratedDescription) error
}

// Orchestrator drives the generation client over a bulk job's product list
// in chunks, updating the job record after each chunk barrier. Per-item
// failures are recorded in the item's outcome and never abort the batch; the
// job itself fails only when the orchestrator cannot start or can no longer
// persist progress.
type Orchestrator struct {
	jobs      domain.JobRepository
	merchants domain.MerchantRepository
	products  domain.ProductRepository
	usage     domain.UsageRepository
	generator Generator
	publisher Publisher
	opts      Options
	logger    zerolog.Logger
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(
	jobs domain.JobRepository,
	merchants domain.MerchantRepository,
	products domain.ProductRepository,
	usage domain.UsageRepository,
	generator Generator,
	publisher Publisher,
	opts Options,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		merchants: merchants,
		products:  products,
		usage:     usage,
		generator: generator,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Run processes one job to a terminal status. The job record is mutated only
// by this orchestrator; a cancel request is observed at chunk boundaries
// only, so an in-flight chunk always finishes.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		o.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("orchestrator: job already terminal")
		return nil
	}
	if job.CancelRequested {
		return o.jobs.Finish(ctx, jobID, domain.JobStatusCancelled, "")
	}

	merchant, err := o.merchants.GetByID(ctx, job.MerchantID)
	if err != nil {
		return o.abort(ctx, jobID, fmt.Errorf("load merchant: %w", err))
	}
	mirror, err := o.products.ListByMerchant(ctx, job.MerchantID)
	if err != nil {
		return o.abort(ctx, jobID, fmt.Errorf("load product mirror: %w", err))
	}
	byID := make(map[string]*domain.Product, len(mirror))
	for i := range mirror {
		byID[mirror[i].ID] = &mirror[i]
	}

	if err := o.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	// A redelivered job resumes after the last persisted chunk. Items before
	// the cursor already have outcomes; mapping them again would double-count.
	remaining := job.ProductIDs
	if job.Processed > 0 {
		if job.Processed > len(remaining) {
			remaining = nil
		} else {
			remaining = remaining[job.Processed:]
		}
		o.logger.Info().Str("job_id", jobID).Int("resume_from", job.Processed).Msg("orchestrator: resuming redelivered job")
	}
	o.logger.Info().Str("job_id", jobID).Int("total", job.Total).Int("remaining", len(remaining)).Msg("orchestrator: job started")

	fn := func(ctx context.Context, productID string) (domain.ItemOutcome, error) {
		return o.processItem(ctx, merchant, byID[productID], productID, job.Options), nil
	}

	after := func(ctx context.Context, _ []string, chunk []Result[domain.ItemOutcome]) (bool, error) {
		outcomes := make([]domain.ItemOutcome, len(chunk))
		succeeded := 0
		for i, res := range chunk {
			outcomes[i] = res.Value
			if res.Value.Success {
				succeeded++
			}
		}
		if err := o.jobs.AppendOutcomes(ctx, jobID, outcomes); err != nil {
			return false, fmt.Errorf("append outcomes: %w", err)
		}
		if succeeded > 0 {
			day := time.Now().UTC().Format("2006-01-02")
			if err := o.usage.Increment(ctx, merchant.ID, day, succeeded); err != nil {
				o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: usage increment failed")
			}
		}
		cancelled, err := o.jobs.CancelRequested(ctx, jobID)
		if err != nil {
			o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: cancel check failed")
			return true, nil
		}
		return !cancelled, nil
	}

	_, stopped, err := Map(ctx, remaining, o.opts, fn, after)
	if err != nil {
		if ctx.Err() != nil {
			// Worker shutdown mid-job: leave the record processing so the
			// stale-queue reaper hands it to another worker.
			return err
		}
		return o.abort(ctx, jobID, err)
	}

	status := domain.JobStatusCompleted
	if stopped {
		status = domain.JobStatusCancelled
	}
	if err := o.jobs.Finish(ctx, jobID, status, ""); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	o.logger.Info().Str("job_id", jobID).Str("status", string(status)).Msg("orchestrator: job finished")
	return nil
}

func (o *Orchestrator) processItem(ctx context.Context, merchant *domain.Merchant, product *domain.Product, productID string, opts domain.GenerationOptions) domain.ItemOutcome {
	outcome := domain.ItemOutcome{ProductID: productID}
	if product == nil {
		outcome.Error = "product not found in mirror"
		return outcome
	}
	desc, err := o.generator.Generate(ctx, domain.GenerationRequest{
		Product: product.Attributes(),
		Options: opts,
	})
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Description = desc
	if err := o.publisher.PushDescription(ctx, merchant, productID, desc); err != nil {
		outcome.Error = fmt.Sprintf("push description: %s", err)
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (o *Orchestrator) abort(ctx context.Context, jobID string, cause error) error {
	o.logger.Error().Err(cause).Str("job_id", jobID).Msg("orchestrator: job aborted")
	if err := o.jobs.Finish(ctx, jobID, domain.JobStatusFailed, cause.Error()); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: failed to record abort")
	}
	return cause
}
