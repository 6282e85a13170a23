package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"descriptly/internal/adapter/repo"
	"descriptly/internal/http/handlers"
	"descriptly/internal/http/httpapi"
	"descriptly/internal/infra"
	"descriptly/internal/providers/openai"
	"descriptly/internal/providers/shopify"
	"descriptly/internal/providers/stripe"
	"descriptly/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
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
		logger.Fatal().Err(err).Msg("failed to configure generation client")
	}
	store := shopify.NewClient(shopify.Options{APIVersion: cfg.ShopifyAPIVersion})
	billing, err := stripe.NewClient(stripe.Options{
		APIKey:  cfg.StripeAPIKey,
		BaseURL: cfg.StripeBaseURL,
		Prices: stripe.PriceTable{
			Basic:      cfg.StripePriceBasic,
			Pro:        cfg.StripePricePro,
			Enterprise: cfg.StripePriceEnt,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure billing client")
	}

	app := &handlers.App{
		Cfg:           cfg,
		Logger:        logger,
		Merchants:     repo.NewMerchantRepository(pool),
		Products:      repo.NewProductRepository(pool),
		Jobs:          repo.NewJobRepository(pool),
		Subscriptions: repo.NewSubscriptionRepository(pool),
		Usage:         repo.NewUsageRepository(pool),
		WebhookEvents: repo.NewWebhookEventRepository(pool),
		Generator:     generator,
		Store:         store,
		Billing:       billing,
		Queue:         queue.NewRedisQueue(rdb, "bulkjobs"),
		Validate:      handlers.NewValidator(),
	}

	router := httpapi.NewRouter(app, rdb)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
