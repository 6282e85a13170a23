package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"descriptly/internal/domain"
	"descriptly/internal/providers/shopify"
)

func TestProductsSyncMirrorsCatalog(t *testing.T) {
	t.Parallel()
	f := newFixture(t, proMerchant())
	f.app.Cfg.PublicBaseURL = "https://api.descriptly.test"
	f.store.listing = []shopify.Product{
		{ID: 1, Title: "Mug", Vendor: "Kiln Co", Tags: "ceramic, kitchen"},
		{ID: 2, Title: "Plate", Vendor: "Kiln Co"},
	}

	req := authedJSON(t, http.MethodPost, "/v1/products/sync", "m-1", nil)
	rec := httptest.NewRecorder()
	f.app.ProductsSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Synced int `json:"synced"`
	}
	decodeBody(t, rec, &resp)
	if resp.Synced != 2 {
		t.Fatalf("synced = %d, want 2", resp.Synced)
	}
	product, err := f.products.GetByID(context.Background(), "m-1", "1")
	if err != nil {
		t.Fatalf("product not mirrored: %v", err)
	}
	if product.Title != "Mug" || len(product.Tags) != 2 {
		t.Fatalf("mirrored product = %+v", product)
	}
	if len(f.store.registered) != 3 {
		t.Fatalf("registered topics = %v, want products create/update/delete", f.store.registered)
	}
}

func TestProductsSyncSkipsWebhookRegistrationWithoutPublicURL(t *testing.T) {
	t.Parallel()
	f := newFixture(t, proMerchant())

	req := authedJSON(t, http.MethodPost, "/v1/products/sync", "m-1", nil)
	rec := httptest.NewRecorder()
	f.app.ProductsSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(f.store.registered) != 0 {
		t.Fatalf("registered = %v, want none without a public base URL", f.store.registered)
	}
}

func TestProductsList(t *testing.T) {
	t.Parallel()
	f := newFixture(t, proMerchant())
	_ = f.products.UpsertAll(context.Background(), "m-1", []domain.Product{
		{ID: "1", MerchantID: "m-1", Title: "Mug"},
		{ID: "2", MerchantID: "m-1", Title: "Plate"},
	})
	_ = f.products.UpsertAll(context.Background(), "m-2", []domain.Product{
		{ID: "9", MerchantID: "m-2", Title: "Other shop"},
	})

	req := authedJSON(t, http.MethodGet, "/v1/products", "m-1", nil)
	rec := httptest.NewRecorder()
	f.app.ProductsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want only the merchant's own products", resp.Count)
	}
}

func TestProductUpdateDescriptionIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, proMerchant())
	_ = f.products.UpsertAll(context.Background(), "m-1", []domain.Product{{ID: "42", MerchantID: "m-1", Title: "Mug"}})

	payload := map[string]any{"description": "<p>hand thrown stoneware</p>"}
	for i := 0; i < 2; i++ {
		req := withURLParam(authedJSON(t, http.MethodPut, "/v1/products/42/description", "m-1", payload), "id", "42")
		rec := httptest.NewRecorder()
		f.app.ProductUpdateDescription(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("push %d status = %d, body = %s", i+1, rec.Code, rec.Body.String())
		}
	}

	if got := f.store.pushed["42"]; got != "<p>hand thrown stoneware</p>" {
		t.Fatalf("store body = %q", got)
	}
	product, _ := f.products.GetByID(context.Background(), "m-1", "42")
	if product.BodyHTML != "<p>hand thrown stoneware</p>" {
		t.Fatalf("mirror body = %q: repeated push must leave the same value", product.BodyHTML)
	}
}

func TestProductUpdateDescriptionUnknownProduct(t *testing.T) {
	t.Parallel()
	f := newFixture(t, proMerchant())

	req := withURLParam(authedJSON(t, http.MethodPut, "/v1/products/42/description", "m-1", map[string]any{"description": "x"}), "id", "42")
	rec := httptest.NewRecorder()
	f.app.ProductUpdateDescription(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(f.store.pushed) != 0 {
		t.Fatal("unknown product must not be pushed to the store")
	}
}
