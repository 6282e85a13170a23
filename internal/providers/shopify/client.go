package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"descriptly/internal/domain"
)

const (
	serviceName    = "shopify"
	defaultTimeout = 30 * time.Second
	defaultVersion = "2024-01"
	pageSize       = 250
)

// Client talks to the Shopify Admin REST API. It holds no per-shop state:
// shop domain and access token are passed per call so one client serves all
// merchants.
type Client struct {
	apiVersion string
	client     *http.Client
}

// Options configures the store client.
type Options struct {
	APIVersion string
	HTTPClient *http.Client
}

// Product is the subset of Shopify's product resource the service reads.
type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"product_type"`
	Tags        string `json:"tags"`
	BodyHTML    string `json:"body_html"`
}

// Mirror converts the API resource into the local mirror entity.
func (p Product) Mirror(merchantID string) domain.Product {
	var tags []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return domain.Product{
		ID:          fmt.Sprintf("%d", p.ID),
		MerchantID:  merchantID,
		Title:       p.Title,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        tags,
		BodyHTML:    p.BodyHTML,
		SyncedAt:    time.Now().UTC(),
	}
}

// NewClient builds a store client.
func NewClient(opts Options) *Client {
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = defaultVersion
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{apiVersion: version, client: client}
}

// ListProducts fetches every product of the shop, following cursor
// pagination via the Link header.
func (c *Client) ListProducts(ctx context.Context, shop, token string) ([]Product, error) {
	var all []Product
	pageInfo := ""
	for {
		endpoint := fmt.Sprintf("https://%s/admin/api/%s/products.json", shop, c.apiVersion)
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", pageSize))
		if pageInfo != "" {
			params.Set("page_info", pageInfo)
		}
		var page struct {
			Products []Product `json:"products"`
		}
		next, err := c.get(ctx, endpoint+"?"+params.Encode(), token, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Products...)
		if next == "" {
			return all, nil
		}
		pageInfo = next
	}
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, shop, token string, productID string) (*Product, error) {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/products/%s.json", shop, c.apiVersion, productID)
	var out struct {
		Product Product `json:"product"`
	}
	if _, err := c.get(ctx, endpoint, token, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

// UpdateProductDescription overwrites the product's body_html. The operation
// is an idempotent overwrite: pushing the same description twice leaves the
// same stored value.
func (c *Client) UpdateProductDescription(ctx context.Context, shop, token string, productID string, bodyHTML string) error {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", productID, err)
	}
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/products/%s.json", shop, c.apiVersion, productID)
	payload := map[string]map[string]any{
		"product": {"id": id, "body_html": bodyHTML},
	}
	return c.send(ctx, http.MethodPut, endpoint, token, payload)
}

// RegisterWebhook subscribes the given address to a topic.
func (c *Client) RegisterWebhook(ctx context.Context, shop, token, topic, address string) error {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/webhooks.json", shop, c.apiVersion)
	payload := map[string]map[string]string{
		"webhook": {"topic": topic, "address": address, "format": "json"},
	}
	return c.send(ctx, http.MethodPost, endpoint, token, payload)
}

func (c *Client) get(ctx context.Context, endpoint, token string, out any) (nextPageInfo string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return "", classifyStatusError(resp.StatusCode, resp.Body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "undecodable response body", err)
	}
	return nextPageInfoFromLink(resp.Header.Get("Link")), nil
}

func (c *Client) send(ctx context.Context, method, endpoint, token string, payload any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return classifyStatusError(resp.StatusCode, resp.Body)
	}
	return nil
}

var linkNextRe = regexp.MustCompile(`<[^>]*[?&]page_info=([^&>]+)[^>]*>;\s*rel="next"`)

func nextPageInfoFromLink(link string) string {
	if link == "" {
		return ""
	}
	if m := linkNextRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewExternalServiceError(serviceName, domain.CauseTimeout, "request timed out", err)
	}
	return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, "request failed", err)
}

func classifyStatusError(status int, body io.Reader) error {
	detail, _ := io.ReadAll(io.LimitReader(body, 512))
	msg := strings.TrimSpace(string(detail))
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	if status == http.StatusTooManyRequests {
		return domain.NewExternalServiceError(serviceName, domain.CauseRateLimited, msg, nil)
	}
	return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, msg, nil)
}
