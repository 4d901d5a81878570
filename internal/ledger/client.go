// Package ledger is the accounting client used by the sales saga.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"sales_saga/internal/sales"
)

var _ sales.LedgerClient = (*Client)(nil)

const dateLayout = "2006-01-02"

// entryID accepts the ledger id as a JSON number or string.
type entryID string

func (id *entryID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = entryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("journal entry id: %w", err)
	}
	*id = entryID(n.String())
	return nil
}

type journalDTO struct {
	ID                 entryID         `json:"id,omitempty"`
	JournalEntryNumber string          `json:"journalEntryNumber"`
	TransactionDate    string          `json:"transactionDate"`
	PostingDate        string          `json:"postingDate"`
	AccountCode        string          `json:"accountCode"`
	AccountName        string          `json:"accountName"`
	DebitAmount        decimal.Decimal `json:"debitAmount"`
	CreditAmount       decimal.Decimal `json:"creditAmount"`
	Description        string          `json:"description,omitempty"`
	Status             string          `json:"status"`
	CreatedBy          string          `json:"createdBy"`
}

func toDTO(e sales.JournalEntry) journalDTO {
	return journalDTO{
		ID:                 entryID(e.ID),
		JournalEntryNumber: e.JournalEntryNumber,
		TransactionDate:    e.TransactionDate.Format(dateLayout),
		PostingDate:        e.PostingDate.Format(dateLayout),
		AccountCode:        e.AccountCode,
		AccountName:        e.AccountName,
		DebitAmount:        e.DebitAmount,
		CreditAmount:       e.CreditAmount,
		Description:        e.Description,
		Status:             e.Status,
		CreatedBy:          e.CreatedBy,
	}
}

func (d journalDTO) toEntry() sales.JournalEntry {
	e := sales.JournalEntry{
		ID:                 string(d.ID),
		JournalEntryNumber: d.JournalEntryNumber,
		AccountCode:        d.AccountCode,
		AccountName:        d.AccountName,
		DebitAmount:        d.DebitAmount,
		CreditAmount:       d.CreditAmount,
		Description:        d.Description,
		Status:             d.Status,
		CreatedBy:          d.CreatedBy,
	}
	// Unparsable dates are left zero; the ledger owns their format.
	e.TransactionDate, _ = time.Parse(dateLayout, d.TransactionDate)
	e.PostingDate, _ = time.Parse(dateLayout, d.PostingDate)
	return e
}

// Client calls the accounting service REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the accounting service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// CreateJournalEntry posts entry and returns it as stored by the ledger, ID included.
func (c *Client) CreateJournalEntry(ctx context.Context, entry sales.JournalEntry) (sales.JournalEntry, error) {
	var created journalDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(toDTO(entry)).
		SetResult(&created).
		Post("/api/accounting/journals")
	if err != nil {
		return sales.JournalEntry{}, fmt.Errorf("%w: create journal entry %s: %w", sales.ErrInfrastructure, entry.JournalEntryNumber, err)
	}
	if !resp.IsSuccess() {
		return sales.JournalEntry{}, fmt.Errorf("%w: create journal entry %s: ledger returned status %d: %s",
			sales.ErrInfrastructure, entry.JournalEntryNumber, resp.StatusCode(), resp.String())
	}
	if created.ID == "" {
		return sales.JournalEntry{}, fmt.Errorf("%w: create journal entry %s: ledger returned no id", sales.ErrInfrastructure, entry.JournalEntryNumber)
	}
	return created.toEntry(), nil
}

// DeleteJournalEntry removes the entry with the given ledger id.
func (c *Client) DeleteJournalEntry(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete("/api/accounting/journals/{id}")
	if err != nil {
		return fmt.Errorf("%w: delete journal entry %s: %w", sales.ErrInfrastructure, id, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", sales.ErrJournalNotFound, id)
	case !resp.IsSuccess():
		return fmt.Errorf("%w: delete journal entry %s: ledger returned status %d", sales.ErrInfrastructure, id, resp.StatusCode())
	}
	return nil
}

// FindJournalEntry looks an entry up by its journal entry number.
func (c *Client) FindJournalEntry(ctx context.Context, number string) (sales.JournalEntry, error) {
	var found journalDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("number", number).
		SetResult(&found).
		Get("/api/accounting/journals/entry/{number}")
	if err != nil {
		return sales.JournalEntry{}, fmt.Errorf("%w: find journal entry %s: %w", sales.ErrInfrastructure, number, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return sales.JournalEntry{}, fmt.Errorf("%w: %s", sales.ErrJournalNotFound, number)
	case !resp.IsSuccess():
		return sales.JournalEntry{}, fmt.Errorf("%w: find journal entry %s: ledger returned status %d", sales.ErrInfrastructure, number, resp.StatusCode())
	}
	return found.toEntry(), nil
}
