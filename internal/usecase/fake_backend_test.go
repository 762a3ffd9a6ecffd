package usecase

import (
	"context"
	"io"
	"sync"

	"order_form/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeBackend struct {
	mu           sync.Mutex
	products     []domain.Product
	customers    []domain.Customer
	productsErr  error
	customersErr error
	priceErr     error
	// gates block a price lookup for a product until the channel is closed.
	gates      map[domain.ID]chan struct{}
	reply      *domain.SubmitReply
	submitErr  error
	submitGate chan struct{}
	drafts     []domain.OrderDraft
	calls      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: []domain.Product{
			{ID: "productA", Name: "Arepa", Price: decimal.RequireFromString("12.50")},
			{ID: "productB", Name: "Empanada", Price: decimal.RequireFromString("0.10")},
		},
		customers: []domain.Customer{{ID: "C1", Name: "Ana"}},
		gates:     make(map[domain.ID]chan struct{}),
		reply:     &domain.SubmitReply{Status: domain.StatusSuccess, Message: "Order created successfully"},
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Bootstrap(ctx context.Context) error { return nil }

func (f *fakeBackend) ListProducts(ctx context.Context) ([]domain.Product, error) {
	f.record("products")
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeBackend) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	f.record("customers")
	if f.customersErr != nil {
		return nil, f.customersErr
	}
	return f.customers, nil
}

func (f *fakeBackend) GetProductPrice(ctx context.Context, productID domain.ID) (decimal.Decimal, error) {
	f.record("price:" + productID.String())
	f.mu.Lock()
	gate := f.gates[productID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.priceErr != nil {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: f.priceErr}
	}
	for _, p := range f.products {
		if p.ID == productID {
			return p.Price, nil
		}
	}
	return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: io.EOF}
}

func (f *fakeBackend) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*domain.SubmitReply, error) {
	f.mu.Lock()
	f.drafts = append(f.drafts, draft)
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.reply, nil
}

type memoryJournal struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
}

func (m *memoryJournal) Record(ctx context.Context, rec *domain.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = len(m.records) + 1
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryJournal) ListRecent(ctx context.Context, limit int) ([]domain.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SubmissionRecord(nil), m.records...), nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
