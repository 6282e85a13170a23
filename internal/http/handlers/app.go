package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"

	"descriptly/internal/domain"
	"descriptly/internal/infra"
	"descriptly/internal/providers/shopify"
	"descriptly/internal/providers/stripe"
	"descriptly/internal/queue"
)

// Generator produces one description per request.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error)
}

// StoreClient is the narrow slice of the Shopify client the handlers use.
type StoreClient interface {
	ListProducts(ctx context.Context, shop, token string) ([]shopify.Product, error)
	UpdateProductDescription(ctx context.Context, shop, token, productID, bodyHTML string) error
	RegisterWebhook(ctx context.Context, shop, token, topic, address string) error
}

// BillingClient is the narrow slice of the Stripe client the handlers use.
type BillingClient interface {
	CreateCustomer(ctx context.Context, email, merchantID string) (*stripe.Customer, error)
	CreateSubscription(ctx context.Context, customerID string, plan domain.Plan) (*stripe.Subscription, error)
	ChangeSubscriptionPlan(ctx context.Context, subscriptionID string, plan domain.Plan) (*stripe.Subscription, error)
	Prices() stripe.PriceTable
}

// App bundles the dependencies shared by all handlers.
type App struct {
	Cfg    *infra.Config
	Logger infra.Logger

	Merchants     domain.MerchantRepository
	Products      domain.ProductRepository
	Jobs          domain.JobRepository
	Subscriptions domain.SubscriptionRepository
	Usage         domain.UsageRepository
	WebhookEvents domain.WebhookEventRepository

	Generator Generator
	Store     StoreClient
	Billing   BillingClient
	Queue     queue.Queue

	Validate *validator.Validate
}

// NewValidator builds the request validator used by the App.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
