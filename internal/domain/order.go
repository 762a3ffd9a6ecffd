package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusSuccess = "success"

	// OrdersListPath is where the browser goes after a successful submission.
	OrdersListPath = "/orders/"
)

// Row is a snapshot of one line item of the order form.
type Row struct {
	Slot         int              `json:"slot"`
	ProductID    ID               `json:"product"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	PricePending bool             `json:"price_pending"`
}

// DisplayTotal is what the price cell shows: the total or a dash.
func (r Row) DisplayTotal() string {
	if r.Total == nil {
		return "-"
	}
	return r.Total.String()
}

type DraftItem struct {
	Product  ID     `json:"product"`
	Quantity string `json:"quantity"`
}

// OrderDraft is the payload posted to the order endpoint.
type OrderDraft struct {
	Customer ID          `json:"customer"`
	Items    []DraftItem `json:"items"`
}

// SubmitReply is the upstream answer to an order submission.
type SubmitReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Outcome struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type SubmissionRecord struct {
	ID        int         `json:"id"`
	SessionID string      `json:"session_id"`
	Customer  ID          `json:"customer"`
	Items     []DraftItem `json:"items"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

type SubmissionRepository interface {
	Record(ctx context.Context, rec *SubmissionRecord) error
	ListRecent(ctx context.Context, limit int) ([]SubmissionRecord, error)
}
