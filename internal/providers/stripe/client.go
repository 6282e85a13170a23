package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"descriptly/internal/domain"
)

const (
	serviceName    = "stripe"
	defaultTimeout = 30 * time.Second
	defaultBaseURL = "https://api.stripe.com/v1"
)

// PriceTable maps plan tiers to Stripe price IDs. The mapping is closed:
// every valid plan must resolve, and resolving an invalid plan is an error.
type PriceTable struct {
	Basic      string
	Pro        string
	Enterprise string
}

// PriceForPlan resolves the Stripe price ID for a plan tier.
func (t PriceTable) PriceForPlan(plan domain.Plan) (string, error) {
	switch plan {
	case domain.PlanBasic:
		return t.Basic, nil
	case domain.PlanPro:
		return t.Pro, nil
	case domain.PlanEnterprise:
		return t.Enterprise, nil
	default:
		return "", fmt.Errorf("no price for plan %q", plan)
	}
}

// PlanForPrice resolves a plan tier from a Stripe price ID, for webhook
// payloads that carry only the price.
func (t PriceTable) PlanForPrice(priceID string) (domain.Plan, bool) {
	switch priceID {
	case t.Basic:
		return domain.PlanBasic, true
	case t.Pro:
		return domain.PlanPro, true
	case t.Enterprise:
		return domain.PlanEnterprise, true
	default:
		return "", false
	}
}

// Options configures the billing client.
type Options struct {
	APIKey     string
	BaseURL    string
	Prices     PriceTable
	HTTPClient *http.Client
}

// Client wraps the Stripe REST API with the handful of operations the
// service needs. Stripe speaks form-encoded requests and JSON responses.
type Client struct {
	apiKey  string
	baseURL string
	prices  PriceTable
	client  *http.Client
}

// Customer is the subset of Stripe's customer resource the service reads.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is the subset of Stripe's subscription resource the service reads.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			ID    string `json:"id"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Plan resolves the subscription's plan tier from its first item's price.
func (s *Subscription) Plan(prices PriceTable) (domain.Plan, bool) {
	if len(s.Items.Data) == 0 {
		return "", false
	}
	return prices.PlanForPrice(s.Items.Data[0].Price.ID)
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient validates options and builds a billing client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("stripe api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		prices:  opts.Prices,
		client:  client,
	}, nil
}

// Prices exposes the plan-to-price mapping for webhook handling.
func (c *Client) Prices() PriceTable {
	return c.prices
}

// CreateCustomer creates a billing customer linked back to the merchant.
func (c *Client) CreateCustomer(ctx context.Context, email, merchantID string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[merchant_id]", merchantID)
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscription starts a subscription on the price mapped to the plan.
func (c *Client) CreateSubscription(ctx context.Context, customerID string, plan domain.Plan) (*Subscription, error) {
	price, err := c.prices.PriceForPlan(plan)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", price)
	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeSubscriptionPlan swaps the subscription's single item to the price
// mapped to the new plan, prorating by Stripe's default behavior.
func (c *Client) ChangeSubscriptionPlan(ctx context.Context, subscriptionID string, plan domain.Plan) (*Subscription, error) {
	price, err := c.prices.PriceForPlan(plan)
	if err != nil {
		return nil, err
	}
	current, err := c.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if len(current.Items.Data) == 0 {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "subscription has no items", nil)
	}
	form := url.Values{}
	form.Set("items[0][id]", current.Items.Data[0].ID)
	form.Set("items[0][price]", price)
	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubscription fetches the current subscription state.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var out Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription cancels the subscription immediately.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions/"+subscriptionID, nil, &Subscription{})
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.NewExternalServiceError(serviceName, domain.CauseTimeout, "request timed out", err)
		}
		return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, "request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var detail apiError
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		msg := detail.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return domain.NewExternalServiceError(serviceName, domain.CauseRateLimited, msg, nil)
		}
		return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, msg, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "undecodable response body", err)
	}
	return nil
}
