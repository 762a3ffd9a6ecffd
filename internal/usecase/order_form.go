package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"order_form/internal/clients"
	"order_form/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type rowState struct {
	slot      int
	productID domain.ID
	quantity  int
	unitPrice *decimal.Decimal
	pending   bool
	// generation changes on every product selection; a price reply is only
	// applied when its generation is still current.
	generation uint64
}

func (r *rowState) snapshot() domain.Row {
	row := domain.Row{
		Slot:         r.slot,
		ProductID:    r.productID,
		Quantity:     r.quantity,
		PricePending: r.pending,
	}
	if r.unitPrice != nil {
		price := *r.unitPrice
		total := price.Mul(decimal.NewFromInt(int64(r.quantity)))
		row.UnitPrice = &price
		row.Total = &total
	}
	return row
}

// FormState is everything needed to render the order form.
type FormState struct {
	ID        string          `json:"id"`
	Customers []domain.Option `json:"customers"`
	Products  []domain.Option `json:"products"`
	Rows      []domain.Row    `json:"rows"`
	Loading   bool            `json:"loading"`
}

// OrderForm holds the line-item rows of one order being composed. It is safe
// for concurrent use; the lock is never held across a backend call.
type OrderForm struct {
	id      string
	client  clients.BackendClient
	journal domain.SubmissionRepository
	log     *logrus.Logger
	catalog domain.Catalog

	mu       sync.Mutex
	rows     map[int]*rowState
	lastSlot int
	loading  bool
}

// NewOrderForm loads the catalog (customers first, then products) and renders
// the initial row. A failed read aborts construction.
func NewOrderForm(ctx context.Context, id string, client clients.BackendClient, journal domain.SubmissionRepository, logger *logrus.Logger) (*OrderForm, error) {
	customers, err := client.ListCustomers(ctx)
	if err != nil {
		logger.Errorf("OrderForm: Catalog load failed for form %s: %v", id, err)
		return nil, err
	}
	products, err := client.ListProducts(ctx)
	if err != nil {
		logger.Errorf("OrderForm: Catalog load failed for form %s: %v", id, err)
		return nil, err
	}

	f := &OrderForm{
		id:      id,
		client:  client,
		journal: journal,
		log:     logger,
		catalog: domain.Catalog{Products: products, Customers: customers},
		rows:    make(map[int]*rowState),
	}
	f.AddRow()
	logger.Infof("OrderForm: Form %s ready with %d products and %d customers", id, len(products), len(customers))
	return f, nil
}

func (f *OrderForm) ID() string { return f.id }

func (f *OrderForm) Catalog() domain.Catalog { return f.catalog }

// AddRow appends an empty row bound to the next slot number.
func (f *OrderForm) AddRow() domain.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSlot++
	r := &rowState{slot: f.lastSlot, quantity: 1}
	f.rows[r.slot] = r
	f.log.Debugf("OrderForm: Form %s added row %d", f.id, r.slot)
	return r.snapshot()
}

// DeleteRow removes the row for slot. Deleting an absent slot does nothing.
func (f *OrderForm) DeleteRow(slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[slot]; !ok {
		return
	}
	delete(f.rows, slot)
	f.log.Debugf("OrderForm: Form %s deleted row %d", f.id, slot)
}

func (f *OrderForm) Row(slot int) (domain.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[slot]
	if !ok {
		return domain.Row{}, fmt.Errorf("slot %d: %w", slot, domain.ErrRowNotFound)
	}
	return r.snapshot(), nil
}

// Rows returns the live rows in slot order.
func (f *OrderForm) Rows() []domain.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsLocked()
}

func (f *OrderForm) rowsLocked() []domain.Row {
	out := make([]domain.Row, 0, len(f.rows))
	for _, r := range f.sortedLocked() {
		out = append(out, r.snapshot())
	}
	return out
}

func (f *OrderForm) sortedLocked() []*rowState {
	rows := make([]*rowState, 0, len(f.rows))
	for _, r := range f.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].slot < rows[j].slot })
	return rows
}

func (f *OrderForm) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *OrderForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		ID:        f.id,
		Customers: f.catalog.CustomerOptions(),
		Products:  f.catalog.ProductOptions(),
		Rows:      f.rowsLocked(),
		Loading:   f.loading,
	}
}

// SelectProduct records the product chosen for a row and fetches its unit
// price. Once the price arrives the quantity is reset to 1. An empty product
// clears the row's price.
func (f *OrderForm) SelectProduct(ctx context.Context, slot int, productID domain.ID) (domain.Row, error) {
	f.mu.Lock()
	r, ok := f.rows[slot]
	if !ok {
		f.mu.Unlock()
		return domain.Row{}, fmt.Errorf("slot %d: %w", slot, domain.ErrRowNotFound)
	}
	r.generation++
	gen := r.generation
	r.productID = productID
	r.unitPrice = nil
	if productID.IsEmpty() {
		r.pending = false
		snap := r.snapshot()
		f.mu.Unlock()
		return snap, nil
	}
	r.pending = true
	f.mu.Unlock()

	price, err := f.client.GetProductPrice(ctx, productID)

	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.rows[slot]
	if !ok || current != r {
		f.log.Debugf("OrderForm: Row %d of form %s was deleted before its price arrived", slot, f.id)
		return domain.Row{}, fmt.Errorf("slot %d: %w", slot, domain.ErrRowNotFound)
	}
	if r.generation != gen {
		f.log.Debugf("OrderForm: Discarding stale price for product %s on row %d", productID, slot)
		return r.snapshot(), nil
	}
	r.pending = false
	if err != nil {
		f.log.Warnf("OrderForm: Price lookup failed for row %d of form %s: %v", slot, f.id, err)
		var ple *domain.PriceLoadError
		if !errors.As(err, &ple) {
			err = &domain.PriceLoadError{ProductID: productID, Err: err}
		}
		return r.snapshot(), err
	}
	r.unitPrice = &price
	r.quantity = 1
	f.log.Debugf("OrderForm: Row %d of form %s priced at %s", slot, f.id, price)
	return r.snapshot(), nil
}

// SetQuantity updates a row's quantity; the total is derived from the stored
// unit price and stays unset while no price is known.
func (f *OrderForm) SetQuantity(slot int, quantity int) (domain.Row, error) {
	if quantity < 1 {
		return domain.Row{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[slot]
	if !ok {
		return domain.Row{}, fmt.Errorf("slot %d: %w", slot, domain.ErrRowNotFound)
	}
	r.quantity = quantity
	return r.snapshot(), nil
}

// Draft assembles the payload from the current rows, pairing each product
// with the quantity of the same row.
func (f *OrderForm) Draft(customerID domain.ID) (domain.OrderDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draftLocked(customerID)
}

func (f *OrderForm) draftLocked(customerID domain.ID) (domain.OrderDraft, error) {
	if customerID.IsEmpty() {
		return domain.OrderDraft{}, fmt.Errorf("%w: customer is required", domain.ErrIncompleteForm)
	}
	if !f.catalog.HasCustomer(customerID) {
		return domain.OrderDraft{}, fmt.Errorf("%w: customer %s is not offered", domain.ErrIncompleteForm, customerID)
	}
	draft := domain.OrderDraft{Customer: customerID, Items: make([]domain.DraftItem, 0, len(f.rows))}
	for _, r := range f.sortedLocked() {
		if r.productID.IsEmpty() {
			return domain.OrderDraft{}, fmt.Errorf("%w: row %d has no product", domain.ErrIncompleteForm, r.slot)
		}
		draft.Items = append(draft.Items, domain.DraftItem{
			Product:  r.productID,
			Quantity: domain.FormatQuantity(r.quantity),
		})
	}
	return draft, nil
}

// Submit posts the current rows as an order. Outstanding price lookups are
// not awaited. The rows are left untouched whatever the outcome.
func (f *OrderForm) Submit(ctx context.Context, customerID domain.ID) (domain.Outcome, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return domain.Outcome{}, domain.ErrSubmitInProgress
	}
	draft, err := f.draftLocked(customerID)
	if err != nil {
		f.mu.Unlock()
		return domain.Outcome{}, err
	}
	f.loading = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()

	f.log.Infof("OrderForm: Submitting form %s for customer %s with %d items", f.id, customerID, len(draft.Items))
	reply, err := f.client.CreateOrder(ctx, draft)
	if err != nil {
		f.log.Errorf("OrderForm: Submission of form %s failed: %v", f.id, err)
		f.record(ctx, draft, "transport_error", err.Error())
		var te *domain.SubmissionTransportError
		if !errors.As(err, &te) {
			err = &domain.SubmissionTransportError{Err: err}
		}
		return domain.Outcome{}, err
	}

	f.record(ctx, draft, reply.Status, reply.Message)
	if reply.Status == domain.StatusSuccess {
		f.log.Infof("OrderForm: Order from form %s accepted", f.id)
		return domain.Outcome{Status: reply.Status, Message: reply.Message, Redirect: domain.OrdersListPath}, nil
	}

	f.log.Warnf("OrderForm: Order from form %s rejected: %s", f.id, reply.Message)
	return domain.Outcome{Status: reply.Status, Message: reply.Message},
		&domain.SubmissionRejectedError{Status: reply.Status, Message: reply.Message}
}

func (f *OrderForm) record(ctx context.Context, draft domain.OrderDraft, status, message string) {
	if f.journal == nil {
		return
	}
	rec := &domain.SubmissionRecord{
		SessionID: f.id,
		Customer:  draft.Customer,
		Items:     draft.Items,
		Status:    status,
		Message:   message,
	}
	if err := f.journal.Record(context.WithoutCancel(ctx), rec); err != nil {
		f.log.Errorf("OrderForm: Failed to journal submission of form %s: %v", f.id, err)
	}
}
