package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"descriptly/internal/http/handlers"
	"descriptly/internal/middleware"
)

// NewRouter wires the HTTP surface. Webhooks and health stay public; every
// merchant-facing route sits behind the bearer token and the rate limiter.
func NewRouter(app *handlers.App, rdb *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if len(app.Cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(app.Cfg.CORSOrigins))
	}

	r.Get("/healthz", app.Health)
	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", app.StripeWebhook)
		r.Post("/shopify", app.ShopifyWebhook)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))
		r.Use(middleware.RateLimit(rdb, app.Cfg.RateLimitPerMin, time.Minute))

		r.Post("/descriptions/generate", app.DescriptionsGenerate)
		r.Post("/descriptions/estimate", app.DescriptionsEstimate)

		r.Post("/bulk/generate", app.BulkGenerate)
		r.Get("/bulk/jobs/{job_id}", app.BulkJobStatus)
		r.Post("/bulk/jobs/{job_id}/cancel", app.BulkJobCancel)

		r.Get("/products", app.ProductsList)
		r.Post("/products/sync", app.ProductsSync)
		r.Put("/products/{id}/description", app.ProductUpdateDescription)

		r.Get("/billing/plans", app.BillingPlans)
		r.Get("/billing/subscription", app.BillingSubscription)
		r.Post("/billing/subscribe", app.BillingSubscribe)

		r.Get("/usage", app.UsageSummary)
	})

	return r
}
