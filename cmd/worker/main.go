package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"descriptly/internal/adapter/repo"
	"descriptly/internal/batch"
	"descriptly/internal/domain"
	"descriptly/internal/infra"
	"descriptly/internal/providers/openai"
	"descriptly/internal/providers/shopify"
	"descriptly/internal/queue"
)

const (
	claimTimeout      = 5 * time.Second
	heartbeatInterval = 30 * time.Second
	reaperInterval    = time.Minute
	reaperBatch       = 100
	// staleAfter must cover several missed heartbeats so a slow but live
	// worker is never robbed of its claim mid-run.
	staleAfter = 3 * heartbeatInterval
)

// storePublisher pushes a finished description to the merchant's store and
// mirrors it locally.
type storePublisher struct {
	store    *shopify.Client
	products domain.ProductRepository
}

func (p *storePublisher) PushDescription(ctx context.Context, merchant *domain.Merchant, productID string, desc *domain.GeneratedDescription) error {
	if err := p.store.UpdateProductDescription(ctx, merchant.ShopDomain, merchant.ShopifyToken, productID, desc.Content); err != nil {
		return err
	}
	return p.products.UpdateBody(ctx, merchant.ID, productID, desc.Content)
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	generator, err := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}
	store := shopify.NewClient(shopify.Options{APIVersion: cfg.ShopifyAPIVersion})

	jobs := repo.NewJobRepository(pool)
	products := repo.NewProductRepository(pool)
	orchestrator := batch.NewOrchestrator(
		jobs,
		repo.NewMerchantRepository(pool),
		products,
		repo.NewUsageRepository(pool),
		generator,
		&storePublisher{store: store, products: products},
		batch.Options{ChunkSize: cfg.BulkChunkSize, Delay: cfg.BulkChunkDelay},
		logger,
	)

	q := queue.NewRedisQueue(rdb, "bulkjobs")

	// Jobs whose heartbeat went silent go back to the queue. A redelivered
	// non-terminal job resumes from its persisted cursor, and a terminal one
	// is skipped on re-claim.
	go func() {
		ticker := time.NewTicker(reaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				moved, err := q.RequeueStale(ctx, staleAfter, reaperBatch)
				if err != nil && ctx.Err() == nil {
					logger.Warn().Err(err).Msg("worker: requeue sweep failed")
					continue
				}
				if moved > 0 {
					logger.Info().Int64("moved", moved).Msg("worker: requeued stale jobs")
				}
			}
		}
	}()

	logger.Info().Int("chunk_size", cfg.BulkChunkSize).Dur("chunk_delay", cfg.BulkChunkDelay).Msg("worker started")

	for {
		jobID, err := q.Claim(ctx, claimTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			logger.Error().Err(err).Msg("worker: claim failed")
			time.Sleep(time.Second)
			continue
		}

		// Keep the claim's heartbeat fresh for as long as the job runs so the
		// reaper only requeues claims whose worker actually died.
		hbCtx, stopHeartbeat := context.WithCancel(ctx)
		go func(jobID string) {
			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case <-hbCtx.Done():
					return
				case <-ticker.C:
					if err := q.Heartbeat(hbCtx, jobID); err != nil && hbCtx.Err() == nil {
						logger.Warn().Err(err).Str("job_id", jobID).Msg("worker: heartbeat failed")
					}
				}
			}
		}(jobID)

		err = orchestrator.Run(ctx, jobID)
		stopHeartbeat()
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown mid-job: leave the queue entry for the reaper.
				break
			}
			logger.Error().Err(err).Str("job_id", jobID).Msg("worker: job run failed")
		}
		// Ack with a fresh context so shutdown does not strand a job that
		// already reached a terminal status.
		ackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := q.Ack(ackCtx, jobID); err != nil {
			logger.Warn().Err(err).Str("job_id", jobID).Msg("worker: ack failed")
		}
		cancel()
	}

	logger.Info().Msg("worker stopped")
}
