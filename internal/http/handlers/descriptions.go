package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"descriptly/internal/domain"
	"descriptly/internal/middleware"
	"descriptly/internal/providers/openai"
)

type generateRequest struct {
	ProductID string                   `json:"product_id" validate:"required"`
	Options   domain.GenerationOptions `json:"options" validate:"required"`
}

type estimateRequest struct {
	Tokens int    `json:"tokens" validate:"required,gt=0"`
	Model  string `json:"model"`
}

// currentMerchant resolves the authenticated merchant for the request.
func (a *App) currentMerchant(r *http.Request) (*domain.Merchant, error) {
	merchantID := middleware.MerchantIDFromContext(r.Context())
	if merchantID == "" {
		return nil, domain.ErrUnauthorized
	}
	return a.Merchants.GetByID(r.Context(), merchantID)
}

// gateGeneration enforces plan capabilities and the monthly quota for n
// upcoming generations.
func (a *App) gateGeneration(r *http.Request, merchant *domain.Merchant, opts domain.GenerationOptions, n int) error {
	caps := domain.Capabilities(merchant.Plan)
	if !caps.AllowsModel(opts.Model) {
		return domain.ErrPlanLimit
	}
	if opts.SEOOptimized && !caps.SEOExtras {
		return domain.ErrPlanLimit
	}
	used, err := a.Usage.TotalSince(r.Context(), merchant.ID, monthStart(time.Now().UTC()))
	if err != nil {
		return err
	}
	if used+n > caps.MonthlyGenerations {
		return domain.ErrQuotaExceeded
	}
	return nil
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DescriptionsGenerate produces one description synchronously and pushes it
// to the merchant's store.
func (a *App) DescriptionsGenerate(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid request", err.Error())
		return
	}
	if err := req.Options.Normalize(); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.gateGeneration(r, merchant, req.Options, 1); err != nil {
		a.domainError(w, r, err)
		return
	}

	product, err := a.Products.GetByID(r.Context(), merchant.ID, req.ProductID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	desc, err := a.Generator.Generate(r.Context(), domain.GenerationRequest{
		Product: product.Attributes(),
		Options: req.Options,
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	day := time.Now().UTC().Format("2006-01-02")
	if err := a.Usage.Increment(r.Context(), merchant.ID, day, 1); err != nil {
		a.Logger.Warn().Err(err).Str("merchant_id", merchant.ID).Msg("usage increment failed")
	}

	a.json(w, http.StatusOK, map[string]any{
		"product_id":  req.ProductID,
		"description": desc,
	})
}

// DescriptionsEstimate returns the blended cost estimate for a token count
// and model. Estimation only; Stripe remains the billing authority.
func (a *App) DescriptionsEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid request", err.Error())
		return
	}
	model := openai.NormalizeModel(req.Model)
	a.json(w, http.StatusOK, map[string]any{
		"tokens":         req.Tokens,
		"model":          model,
		"estimated_cost": openai.EstimateCost(req.Tokens, model),
		"currency":       "usd",
	})
}
