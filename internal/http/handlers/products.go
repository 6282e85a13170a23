package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"descriptly/internal/domain"
)

type updateDescriptionRequest struct {
	Description string `json:"description" validate:"required"`
}

// ProductsList returns the merchant's local product mirror.
func (a *App) ProductsList(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	products, err := a.Products.ListByMerchant(r.Context(), merchant.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(products))
	for _, p := range products {
		items = append(items, map[string]any{
			"id":           p.ID,
			"title":        p.Title,
			"vendor":       p.Vendor,
			"product_type": p.ProductType,
			"tags":         p.Tags,
			"body_html":    p.BodyHTML,
			"synced_at":    p.SyncedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"products": items, "count": len(items)})
}

// ProductsSync pulls the shop's catalog and refreshes the mirror.
func (a *App) ProductsSync(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	remote, err := a.Store.ListProducts(r.Context(), merchant.ShopDomain, merchant.ShopifyToken)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	mirror := make([]domain.Product, 0, len(remote))
	for _, p := range remote {
		mirror = append(mirror, p.Mirror(merchant.ID))
	}
	if err := a.Products.UpsertAll(r.Context(), merchant.ID, mirror); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.ensureStoreWebhooks(r.Context(), merchant)
	a.json(w, http.StatusOK, map[string]any{"synced": len(mirror)})
}

// ensureStoreWebhooks keeps the mirror fresh between manual syncs by
// subscribing to product changes. Registration is best effort: the store
// rejects duplicate subscriptions and a failure only delays mirror updates
// until the next sync.
func (a *App) ensureStoreWebhooks(ctx context.Context, merchant *domain.Merchant) {
	if a.Cfg.PublicBaseURL == "" {
		return
	}
	address := a.Cfg.PublicBaseURL + "/v1/webhooks/shopify"
	for _, topic := range []string{"products/create", "products/update", "products/delete"} {
		if err := a.Store.RegisterWebhook(ctx, merchant.ShopDomain, merchant.ShopifyToken, topic, address); err != nil {
			a.Logger.Warn().Err(err).Str("merchant_id", merchant.ID).Str("topic", topic).Msg("webhook registration failed")
		}
	}
}

// ProductUpdateDescription pushes a description to the store and mirrors it
// locally. The push overwrites, so repeating the call is idempotent.
func (a *App) ProductUpdateDescription(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	productID := chi.URLParam(r, "id")
	var req updateDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid request", err.Error())
		return
	}
	if _, err := a.Products.GetByID(r.Context(), merchant.ID, productID); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Store.UpdateProductDescription(r.Context(), merchant.ShopDomain, merchant.ShopifyToken, productID, req.Description); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Products.UpdateBody(r.Context(), merchant.ID, productID, req.Description); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": productID, "status": "updated"})
}
