package sales

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Payment status assigned when the request does not carry one.
const DefaultPaymentStatus = "pending"

// Sale represents a recorded sale.
type Sale struct {
	ID                 string          `json:"id"`
	SaleNumber         string          `json:"sale_number"`
	ProductID          string          `json:"product_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	FinalAmount        decimal.Decimal `json:"final_amount"`
	SaleDate           time.Time       `json:"sale_date"`
	CustomerID         string          `json:"customer_id,omitempty"`
	CustomerName       string          `json:"customer_name,omitempty"`
	Salesperson        string          `json:"salesperson,omitempty"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	PaymentStatus      string          `json:"payment_status"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SaleRequest is the input of ExecuteSale. Pointer fields are optional.
type SaleRequest struct {
	SaleNumber         string           `json:"sale_number,omitempty"`
	ProductID          string           `json:"product_id"`
	Quantity           int              `json:"quantity"`
	UnitPrice          *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	SaleDate           *time.Time       `json:"sale_date,omitempty"`
	CustomerID         string           `json:"customer_id,omitempty"`
	CustomerName       string           `json:"customer_name,omitempty"`
	Salesperson        string           `json:"salesperson,omitempty"`
	PaymentMethod      string           `json:"payment_method,omitempty"`
	PaymentStatus      string           `json:"payment_status,omitempty"`
	Notes              string           `json:"notes,omitempty"`
}

// Validate checks the preconditions that must hold before any collaborator is called.
func (r SaleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&r.DiscountPercentage, validation.By(percentage)),
		validation.Field(&r.UnitPrice, validation.By(nonNegative)),
	)
}

func percentage(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d == nil {
		return nil
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return validation.NewError("validation_percentage_range", "must be between 0 and 100")
	}
	return nil
}

func nonNegative(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d != nil && d.IsNegative() {
		return validation.NewError("validation_non_negative", "must not be negative")
	}
	return nil
}

// ProductSnapshot is a point-in-time read of a product held by the inventory service.
type ProductSnapshot struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

// JournalEntry is the accounting record posted for a sale.
type JournalEntry struct {
	ID                 string          `json:"id,omitempty"`
	JournalEntryNumber string          `json:"journal_entry_number"`
	TransactionDate    time.Time       `json:"transaction_date"`
	PostingDate        time.Time       `json:"posting_date"`
	AccountCode        string          `json:"account_code"`
	AccountName        string          `json:"account_name"`
	DebitAmount        decimal.Decimal `json:"debit_amount"`
	CreditAmount       decimal.Decimal `json:"credit_amount"`
	Description        string          `json:"description,omitempty"`
	Status             string          `json:"status"`
	CreatedBy          string          `json:"created_by"`
}

// Journal status every sale entry is created with.
const JournalStatusDraft = "draft"

// applyDefaults resolves every optional field of the request once, before pricing.
func applyDefaults(req SaleRequest, product ProductSnapshot, now time.Time) SaleRequest {
	if req.UnitPrice == nil {
		price := product.Price
		req.UnitPrice = &price
	}
	if req.DiscountPercentage == nil {
		zero := decimal.Zero
		req.DiscountPercentage = &zero
	}
	if req.SaleDate == nil {
		today := truncateToDay(now)
		req.SaleDate = &today
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = DefaultPaymentStatus
	}
	if req.SaleNumber == "" {
		req.SaleNumber = NewSaleNumber(now).String()
	}
	return req
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
