package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockClient talks to the inventory service. Unknown products are reported as
// ErrProductNotFound, transport failures as ErrInfrastructure. It never retries.
type StockClient interface {
	GetProduct(ctx context.Context, id string) (ProductSnapshot, error)
	SetStock(ctx context.Context, id string, newQuantity int) error
}

// LedgerClient talks to the accounting service.
type LedgerClient interface {
	CreateJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, id string) error
	// FindJournalEntry looks an entry up by its journal entry number.
	FindJournalEntry(ctx context.Context, number string) (JournalEntry, error)
}

// EventType names a saga outcome.
type EventType string

const (
	EventSaleCompleted  EventType = "SaleCompleted"
	EventSaleRolledBack EventType = "SaleRolledBack"
)

// SagaEvent describes how one ExecuteSale attempt ended.
type SagaEvent struct {
	Type                 EventType       `json:"type"`
	SaleID               string          `json:"sale_id,omitempty"`
	SaleNumber           string          `json:"sale_number,omitempty"`
	ProductID            string          `json:"product_id"`
	Quantity             int             `json:"quantity"`
	FinalAmount          decimal.Decimal `json:"final_amount"`
	JournalNumber        string          `json:"journal_number,omitempty"`
	FailedStep           Step            `json:"failed_step,omitempty"`
	Cause                string          `json:"cause,omitempty"`
	CompensationWarnings int             `json:"compensation_warnings,omitempty"`
	Trace                []Step          `json:"trace"`
	OccurredAt           time.Time       `json:"occurred_at"`
}

// EventPublisher receives saga outcomes. Failures to publish never affect the sale.
type EventPublisher interface {
	Publish(ctx context.Context, event SagaEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, SagaEvent) error { return nil }
