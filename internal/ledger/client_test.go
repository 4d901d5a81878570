package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_saga/internal/sales"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, time.Second)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sampleEntry() sales.JournalEntry {
	return sales.JournalEntry{
		JournalEntryNumber: "JE20250903B30BAD",
		TransactionDate:    time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC),
		PostingDate:        time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC),
		AccountCode:        "4000",
		AccountName:        "Sales Revenue",
		DebitAmount:        decimal.Zero,
		CreditAmount:       decimal.RequireFromString("53.973"),
		Description:        "Sale SALE-20250903-B30BAD: product p-1 x3",
		Status:             sales.JournalStatusDraft,
		CreatedBy:          "sales-service",
	}
}

func TestCreateJournalEntry(t *testing.T) {
	var posted map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/accounting/journals", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		reply := map[string]any{"id": 42}
		for k, v := range posted {
			if k != "id" {
				reply[k] = v
			}
		}
		writeJSON(w, http.StatusCreated, reply)
	})

	created, err := c.CreateJournalEntry(context.Background(), sampleEntry())
	require.NoError(t, err)

	assert.Equal(t, "42", created.ID)
	assert.Equal(t, "JE20250903B30BAD", posted["journalEntryNumber"])
	assert.Equal(t, "2025-09-03", posted["transactionDate"])
	assert.Equal(t, "2025-09-04", posted["postingDate"])
	assert.Equal(t, "draft", posted["status"])
	assert.Equal(t, "sales-service", posted["createdBy"])
	assert.NotContains(t, posted, "id", "id is assigned by the ledger")
	assert.True(t, decimal.RequireFromString("53.973").Equal(created.CreditAmount))
	assert.Equal(t, sampleEntry().TransactionDate, created.TransactionDate)
}

func TestCreateJournalEntry_StringID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":                 "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			"journalEntryNumber": "JE20250903B30BAD",
		})
	})

	created, err := c.CreateJournalEntry(context.Background(), sampleEntry())
	require.NoError(t, err)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", created.ID)
}

func TestEntryID_Decode(t *testing.T) {
	for raw, want := range map[string]string{`42`: "42", `"42"`: "42", `"ab-1"`: "ab-1", `null`: ""} {
		var id entryID
		require.NoError(t, json.Unmarshal([]byte(raw), &id), raw)
		assert.Equal(t, want, string(id), raw)
	}
	var id entryID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestCreateJournalEntry_Errors(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duplicate number"})
		})
		_, err := c.CreateJournalEntry(context.Background(), sampleEntry())
		assert.ErrorIs(t, err, sales.ErrInfrastructure)
		assert.Contains(t, err.Error(), "400")
	})
	t.Run("no id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]string{"journalEntryNumber": "JE1"})
		})
		_, err := c.CreateJournalEntry(context.Background(), sampleEntry())
		assert.ErrorIs(t, err, sales.ErrInfrastructure)
	})
	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := NewClient(url, time.Second)
		defer c.Close()

		_, err := c.CreateJournalEntry(context.Background(), sampleEntry())
		assert.ErrorIs(t, err, sales.ErrInfrastructure)
	})
}

func TestDeleteJournalEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/api/accounting/journals/42":
			w.WriteHeader(http.StatusNoContent)
		case "/api/accounting/journals/7":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	assert.NoError(t, c.DeleteJournalEntry(context.Background(), "42"))
	assert.ErrorIs(t, c.DeleteJournalEntry(context.Background(), "7"), sales.ErrJournalNotFound)
	assert.ErrorIs(t, c.DeleteJournalEntry(context.Background(), "8"), sales.ErrInfrastructure)
}

func TestFindJournalEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path != "/api/accounting/journals/entry/JE20250903B30BAD" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		dto := toDTO(sampleEntry())
		dto.ID = "42"
		writeJSON(w, http.StatusOK, dto)
	})

	found, err := c.FindJournalEntry(context.Background(), "JE20250903B30BAD")
	require.NoError(t, err)
	want := sampleEntry()
	want.ID = "42"
	assert.Equal(t, want.JournalEntryNumber, found.JournalEntryNumber)
	assert.Equal(t, want.ID, found.ID)
	assert.Equal(t, want.PostingDate, found.PostingDate)
	assert.True(t, want.CreditAmount.Equal(found.CreditAmount))

	_, err = c.FindJournalEntry(context.Background(), "JE0")
	assert.ErrorIs(t, err, sales.ErrJournalNotFound)
}
