package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"descriptly/internal/domain"
	"descriptly/internal/providers/shopify"
	"descriptly/internal/providers/stripe"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// StripeWebhook ingests billing events. The signature is verified against
// the raw body before any payload field is read; a verification failure
// rejects the delivery without touching local state.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	if err := stripe.VerifySignature(body, r.Header.Get("Stripe-Signature"), a.Cfg.StripeWebhookSecret, stripe.DefaultTolerance); err != nil {
		a.domainError(w, r, domain.ErrInvalidSignature)
		return
	}

	event, err := stripe.ParseEvent(body)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid event payload")
		return
	}
	fresh, err := a.WebhookEvents.Insert(r.Context(), "stripe", event.ID, event.Type)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if !fresh {
		a.json(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
		return
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		if err := a.applySubscriptionEvent(r, event); err != nil {
			a.domainError(w, r, err)
			return
		}
	default:
		a.Logger.Debug().Str("type", event.Type).Msg("stripe webhook ignored")
	}

	a.json(w, http.StatusOK, map[string]any{"received": true})
}

func (a *App) applySubscriptionEvent(r *http.Request, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return domain.NewExternalServiceError("stripe", domain.CauseMalformedResponse, "undecodable subscription object", err)
	}
	merchant, err := a.Merchants.GetByStripeCustomer(r.Context(), sub.Customer)
	if err != nil {
		return err
	}

	plan, ok := sub.Plan(a.Billing.Prices())
	if !ok {
		plan = merchant.Plan
	}
	status := subscriptionStatus(sub.Status)
	if event.Type == "customer.subscription.deleted" {
		status = domain.SubscriptionCanceled
	}
	// A lapsed subscription drops the merchant to the lowest tier.
	effective := plan
	if status != domain.SubscriptionActive {
		effective = domain.PlanBasic
	}

	mirror := &domain.Subscription{
		MerchantID:           merchant.ID,
		Plan:                 plan,
		Status:               status,
		StripeCustomerID:     sub.Customer,
		StripeSubscriptionID: sub.ID,
		UpdatedAt:            time.Now().UTC(),
	}
	if err := a.Subscriptions.Upsert(r.Context(), mirror); err != nil {
		return err
	}
	if err := a.Merchants.SetPlan(r.Context(), merchant.ID, effective); err != nil {
		return err
	}
	a.Logger.Info().
		Str("merchant_id", merchant.ID).
		Str("plan", string(effective)).
		Str("status", string(status)).
		Msg("subscription mirror updated")
	return nil
}

// ShopifyWebhook ingests store events and keeps the product mirror fresh.
// Same contract as the billing webhook: verify first, mutate after.
func (a *App) ShopifyWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	if !shopify.VerifyWebhook(a.Cfg.ShopifyWebhookSecret, body, r.Header.Get("X-Shopify-Hmac-Sha256")) {
		a.domainError(w, r, domain.ErrInvalidSignature)
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	shop := r.Header.Get("X-Shopify-Shop-Domain")
	merchant, err := a.Merchants.GetByShopDomain(r.Context(), shop)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown shop: acknowledge so the platform stops retrying.
			a.json(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		a.domainError(w, r, err)
		return
	}

	if eventID := r.Header.Get("X-Shopify-Webhook-Id"); eventID != "" {
		fresh, err := a.WebhookEvents.Insert(r.Context(), "shopify", eventID, topic)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		if !fresh {
			a.json(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
			return
		}
	}

	switch topic {
	case "products/create", "products/update":
		var product shopify.Product
		if err := json.Unmarshal(body, &product); err != nil {
			a.error(w, r, http.StatusBadRequest, "bad_request", "invalid product payload")
			return
		}
		if err := a.Products.UpsertAll(r.Context(), merchant.ID, []domain.Product{product.Mirror(merchant.ID)}); err != nil {
			a.domainError(w, r, err)
			return
		}
	case "products/delete":
		var payload struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
		if err := a.Products.Delete(r.Context(), merchant.ID, strconv.FormatInt(payload.ID, 10)); err != nil {
			a.domainError(w, r, err)
			return
		}
	default:
		a.Logger.Debug().Str("topic", topic).Msg("shopify webhook ignored")
	}

	a.json(w, http.StatusOK, map[string]any{"received": true})
}
