package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"descriptly/internal/domain"
	"descriptly/internal/infra"
	"descriptly/internal/middleware"
	"descriptly/internal/providers/shopify"
	"descriptly/internal/providers/stripe"
)

// In-memory repository fakes shared by the handler tests.

type memMerchants struct {
	mu        sync.Mutex
	merchants map[string]*domain.Merchant
}

func newMemMerchants(list ...*domain.Merchant) *memMerchants {
	m := &memMerchants{merchants: make(map[string]*domain.Merchant)}
	for _, merchant := range list {
		m.merchants[merchant.ID] = merchant
	}
	return m
}

func (m *memMerchants) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if merchant, ok := m.merchants[id]; ok {
		copied := *merchant
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memMerchants) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, merchant := range m.merchants {
		if merchant.Email == email {
			copied := *merchant
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memMerchants) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, merchant := range m.merchants {
		if merchant.ShopDomain == shopDomain {
			copied := *merchant
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memMerchants) GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, merchant := range m.merchants {
		if merchant.StripeCustomerID == customerID {
			copied := *merchant
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memMerchants) SetStripeCustomer(ctx context.Context, merchantID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if merchant, ok := m.merchants[merchantID]; ok {
		merchant.StripeCustomerID = customerID
		return nil
	}
	return domain.ErrNotFound
}

func (m *memMerchants) SetPlan(ctx context.Context, merchantID string, plan domain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if merchant, ok := m.merchants[merchantID]; ok {
		merchant.Plan = plan
		return nil
	}
	return domain.ErrNotFound
}

func (m *memMerchants) plan(merchantID string) domain.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merchants[merchantID].Plan
}

type memProducts struct {
	mu       sync.Mutex
	products map[string]domain.Product
	upserts  int
	deletes  int
}

func newMemProducts(list ...domain.Product) *memProducts {
	p := &memProducts{products: make(map[string]domain.Product)}
	for _, product := range list {
		p.products[product.MerchantID+"/"+product.ID] = product
	}
	return p
}

func (p *memProducts) UpsertAll(ctx context.Context, merchantID string, products []domain.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, product := range products {
		p.products[merchantID+"/"+product.ID] = product
	}
	p.upserts++
	return nil
}

func (p *memProducts) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Product
	for _, product := range p.products {
		if product.MerchantID == merchantID {
			out = append(out, product)
		}
	}
	return out, nil
}

func (p *memProducts) GetByID(ctx context.Context, merchantID, productID string) (*domain.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if product, ok := p.products[merchantID+"/"+productID]; ok {
		return &product, nil
	}
	return nil, domain.ErrNotFound
}

func (p *memProducts) UpdateBody(ctx context.Context, merchantID, productID, bodyHTML string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	product, ok := p.products[merchantID+"/"+productID]
	if !ok {
		return domain.ErrNotFound
	}
	product.BodyHTML = bodyHTML
	p.products[merchantID+"/"+productID] = product
	return nil
}

func (p *memProducts) Delete(ctx context.Context, merchantID, productID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.products, merchantID+"/"+productID)
	p.deletes++
	return nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.BulkJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.BulkJob)}
}

func (j *memJobs) Create(ctx context.Context, job *domain.BulkJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	copied := *job
	j.jobs[job.ID] = &copied
	return nil
}

func (j *memJobs) GetByID(ctx context.Context, jobID string) (*domain.BulkJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[jobID]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (j *memJobs) GetForMerchant(ctx context.Context, jobID, merchantID string) (*domain.BulkJob, error) {
	job, err := j.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (j *memJobs) MarkProcessing(ctx context.Context, jobID string) error { return nil }

func (j *memJobs) AppendOutcomes(ctx context.Context, jobID string, outcomes []domain.ItemOutcome) error {
	return nil
}

func (j *memJobs) Finish(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[jobID]; ok && !job.Status.Terminal() {
		job.Status = status
		job.ErrorMessage = errMsg
	}
	return nil
}

func (j *memJobs) RequestCancel(ctx context.Context, jobID, merchantID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[jobID]
	if !ok || job.MerchantID != merchantID {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}
	job.CancelRequested = true
	return nil
}

func (j *memJobs) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[jobID]; ok {
		return job.CancelRequested, nil
	}
	return false, domain.ErrNotFound
}

type memSubscriptions struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{subs: make(map[string]*domain.Subscription)}
}

func (s *memSubscriptions) Upsert(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sub
	s.subs[sub.MerchantID] = &copied
	return nil
}

func (s *memSubscriptions) GetByMerchant(ctx context.Context, merchantID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[merchantID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (s *memSubscriptions) GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.StripeCustomerID == customerID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memUsage struct {
	mu    sync.Mutex
	total int
}

func (u *memUsage) Increment(ctx context.Context, merchantID, day string, generations int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total += generations
	return nil
}

func (u *memUsage) TotalSince(ctx context.Context, merchantID string, from time.Time) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total, nil
}

type memWebhookEvents struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemWebhookEvents() *memWebhookEvents {
	return &memWebhookEvents{seen: make(map[string]bool)}
}

func (e *memWebhookEvents) Insert(ctx context.Context, provider, eventID, eventType string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := provider + "/" + eventID
	if e.seen[key] {
		return false, nil
	}
	e.seen[key] = true
	return true, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
	fail     bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return context.DeadlineExceeded
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

func (q *fakeQueue) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	return "", nil
}

func (q *fakeQueue) Heartbeat(ctx context.Context, jobID string) error { return nil }

func (q *fakeQueue) Ack(ctx context.Context, jobID string) error { return nil }

func (q *fakeQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	return 0, nil
}

type generatorFunc func(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error)

func (fn generatorFunc) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error) {
	return fn(ctx, req)
}

type fakeStore struct {
	mu         sync.Mutex
	pushed     map[string]string
	listing    []shopify.Product
	registered []string
}

func (s *fakeStore) ListProducts(ctx context.Context, shop, token string) ([]shopify.Product, error) {
	return s.listing, nil
}

func (s *fakeStore) UpdateProductDescription(ctx context.Context, shop, token, productID, bodyHTML string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushed == nil {
		s.pushed = make(map[string]string)
	}
	s.pushed[productID] = bodyHTML
	return nil
}

func (s *fakeStore) RegisterWebhook(ctx context.Context, shop, token, topic, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, topic)
	return nil
}

type fakeBilling struct {
	prices stripe.PriceTable
}

func (b *fakeBilling) CreateCustomer(ctx context.Context, email, merchantID string) (*stripe.Customer, error) {
	return &stripe.Customer{ID: "cus_new", Email: email}, nil
}

func (b *fakeBilling) CreateSubscription(ctx context.Context, customerID string, plan domain.Plan) (*stripe.Subscription, error) {
	return &stripe.Subscription{ID: "sub_new", Customer: customerID, Status: "active"}, nil
}

func (b *fakeBilling) ChangeSubscriptionPlan(ctx context.Context, subscriptionID string, plan domain.Plan) (*stripe.Subscription, error) {
	return &stripe.Subscription{ID: subscriptionID, Status: "active"}, nil
}

func (b *fakeBilling) Prices() stripe.PriceTable {
	return b.prices
}

type testFixture struct {
	app           *App
	merchants     *memMerchants
	products      *memProducts
	jobs          *memJobs
	subscriptions *memSubscriptions
	usage         *memUsage
	events        *memWebhookEvents
	queue         *fakeQueue
	store         *fakeStore
}

func newFixture(t *testing.T, merchant *domain.Merchant) *testFixture {
	t.Helper()
	f := &testFixture{
		merchants:     newMemMerchants(merchant),
		products:      newMemProducts(),
		jobs:          newMemJobs(),
		subscriptions: newMemSubscriptions(),
		usage:         &memUsage{},
		events:        newMemWebhookEvents(),
		queue:         &fakeQueue{},
		store:         &fakeStore{},
	}
	f.app = &App{
		Cfg: &infra.Config{
			JWTSecret:            "test-secret",
			StripeWebhookSecret:  "whsec_test",
			ShopifyWebhookSecret: "shpss_test",
		},
		Logger:        zerolog.Nop(),
		Merchants:     f.merchants,
		Products:      f.products,
		Jobs:          f.jobs,
		Subscriptions: f.subscriptions,
		Usage:         f.usage,
		WebhookEvents: f.events,
		Generator: generatorFunc(func(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error) {
			return &domain.GeneratedDescription{Content: "generated copy", WordCount: 2}, nil
		}),
		Store:    f.store,
		Billing:  &fakeBilling{prices: stripe.PriceTable{Basic: "price_b", Pro: "price_p", Enterprise: "price_e"}},
		Queue:    f.queue,
		Validate: NewValidator(),
	}
	return f
}

func proMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:         "m-1",
		Email:      "owner@shop.test",
		ShopDomain: "shop.myshopify.com",
		Plan:       domain.PlanPro,
	}
}

// authedJSON builds a request with a merchant identity already in context.
func authedJSON(t *testing.T, method, target, merchantID string, payload any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	if merchantID != "" {
		req = req.WithContext(middleware.ContextWithMerchantID(req.Context(), merchantID))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
