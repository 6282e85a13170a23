package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"descriptly/internal/domain"
	"descriptly/internal/providers/stripe"
)

type subscribeRequest struct {
	Plan domain.Plan `json:"plan" validate:"required,oneof=basic pro enterprise"`
}

// BillingPlans lists the plan tiers and their capability sets.
func (a *App) BillingPlans(w http.ResponseWriter, r *http.Request) {
	plans := []domain.Plan{domain.PlanBasic, domain.PlanPro, domain.PlanEnterprise}
	items := make([]map[string]any, 0, len(plans))
	for _, p := range plans {
		caps := domain.Capabilities(p)
		items = append(items, map[string]any{
			"plan":                p,
			"monthly_generations": caps.MonthlyGenerations,
			"max_bulk_size":       caps.MaxBulkSize,
			"allowed_models":      caps.AllowedModels,
			"seo_extras":          caps.SEOExtras,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"plans": items})
}

// BillingSubscription returns the local billing mirror. A merchant without a
// mirror row is on the basic tier with no active subscription.
func (a *App) BillingSubscription(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	sub, err := a.Subscriptions.GetByMerchant(r.Context(), merchant.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusOK, map[string]any{
				"plan":   domain.PlanBasic,
				"status": domain.SubscriptionInactive,
			})
			return
		}
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"plan":       sub.Plan,
		"status":     sub.Status,
		"updated_at": sub.UpdatedAt,
	})
}

// BillingSubscribe starts or changes the merchant's subscription on the
// billing platform, then updates the local mirror optimistically. The mirror
// stays a cache: the next webhook is authoritative.
func (a *App) BillingSubscribe(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid request", err.Error())
		return
	}

	customerID := merchant.StripeCustomerID
	if customerID == "" {
		customer, err := a.Billing.CreateCustomer(r.Context(), merchant.Email, merchant.ID)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		customerID = customer.ID
		if err := a.Merchants.SetStripeCustomer(r.Context(), merchant.ID, customerID); err != nil {
			a.domainError(w, r, err)
			return
		}
	}

	existing, err := a.Subscriptions.GetByMerchant(r.Context(), merchant.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.domainError(w, r, err)
		return
	}

	var remote *stripe.Subscription
	if existing != nil && existing.StripeSubscriptionID != "" {
		remote, err = a.Billing.ChangeSubscriptionPlan(r.Context(), existing.StripeSubscriptionID, req.Plan)
	} else {
		remote, err = a.Billing.CreateSubscription(r.Context(), customerID, req.Plan)
	}
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	mirror := &domain.Subscription{
		MerchantID:           merchant.ID,
		Plan:                 req.Plan,
		Status:               subscriptionStatus(remote.Status),
		StripeCustomerID:     customerID,
		StripeSubscriptionID: remote.ID,
		UpdatedAt:            time.Now().UTC(),
	}
	if err := a.Subscriptions.Upsert(r.Context(), mirror); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Merchants.SetPlan(r.Context(), merchant.ID, req.Plan); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"plan":   mirror.Plan,
		"status": mirror.Status,
	})
}

// subscriptionStatus maps Stripe's status strings onto the mirror enum.
func subscriptionStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return domain.SubscriptionActive
	case "past_due", "unpaid":
		return domain.SubscriptionPastDue
	case "canceled":
		return domain.SubscriptionCanceled
	default:
		return domain.SubscriptionInactive
	}
}
