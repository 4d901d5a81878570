package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_saga/internal/sales"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unexpected destination")
		}
	}
	return nil
}

func rowValues(amount string) []any {
	day := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	return []any{
		"3f1c2a9e-5b7d-4c2e-9a61-0d8f4b2e7c11", "SALE-20250903-B30BAD", "p-1", 3,
		"19.99", "59.97", "10", "5.997", amount,
		day, "c-1", "Ada", "", "card", "pending", "",
		day, day,
	}
}

func TestScanSale(t *testing.T) {
	s, err := scanSale(fakeRow{values: rowValues("53.973")})
	require.NoError(t, err)

	assert.Equal(t, "SALE-20250903-B30BAD", s.SaleNumber)
	assert.Equal(t, 3, s.Quantity)
	assert.True(t, decimal.RequireFromString("53.973").Equal(s.FinalAmount))
	assert.True(t, decimal.RequireFromString("5.997").Equal(s.DiscountAmount))
	assert.Equal(t, "card", s.PaymentMethod)
}

func TestScanSale_Errors(t *testing.T) {
	_, err := scanSale(fakeRow{values: rowValues("not-a-number")})
	assert.ErrorContains(t, err, "decode amount")

	boom := errors.New("conn closed")
	_, err = scanSale(fakeRow{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://user@host:notaport/db", 4)
	assert.ErrorContains(t, err, "parse postgres dsn")
}

// Runs against a real database when SALES_TEST_POSTGRES_DSN is set.
func TestSaleStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("SALES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SALES_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn, 2)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))
	store := &SaleStore{DB: db}

	sale := &sales.Sale{
		SaleNumber:    sales.GenerateSaleNumber(),
		ProductID:     "p-1",
		Quantity:      2,
		UnitPrice:     decimal.RequireFromString("0.10"),
		TotalAmount:   decimal.RequireFromString("0.20"),
		FinalAmount:   decimal.RequireFromString("0.20"),
		SaleDate:      time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC),
		PaymentStatus: sales.DefaultPaymentStatus,
	}
	require.NoError(t, store.Create(ctx, sale))
	t.Cleanup(func() { _ = store.Delete(context.Background(), sale.ID) })

	got, err := store.Read(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, sale.FinalAmount.Equal(got.FinalAmount))

	byNumber, err := store.ReadByNumber(ctx, sale.SaleNumber)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, byNumber.ID)

	dup := *sale
	dup.ID = ""
	assert.ErrorIs(t, store.Create(ctx, &dup), sales.ErrDuplicateSaleNumber)

	require.NoError(t, store.Delete(ctx, sale.ID))
	_, err = store.Read(ctx, sale.ID)
	assert.ErrorIs(t, err, sales.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sale.ID), sales.ErrNotFound)
}
