package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sales_saga/internal/sales"
)

var _ sales.Storage = (*SaleStore)(nil)

const uniqueViolation = "23505"

// Numeric columns are read back as text so decimal parses them without float rounding.
const selectSale = `SELECT id::text, sale_number, product_id, quantity,
	unit_price::text, total_amount::text, discount_percentage::text, discount_amount::text, final_amount::text,
	sale_date, customer_id, customer_name, salesperson, payment_method, payment_status, notes,
	created_at, updated_at
	FROM sales`

// SaleStore persists sales in Postgres.
type SaleStore struct{ DB *pgxpool.Pool }

func (r *SaleStore) Create(ctx context.Context, sale *sales.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO sales(id, sale_number, product_id, quantity,
			unit_price, total_amount, discount_percentage, discount_amount, final_amount,
			sale_date, customer_id, customer_name, salesperson, payment_method, payment_status, notes)
		VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		sale.ID, sale.SaleNumber, sale.ProductID, sale.Quantity,
		sale.UnitPrice.String(), sale.TotalAmount.String(), sale.DiscountPercentage.String(),
		sale.DiscountAmount.String(), sale.FinalAmount.String(),
		sale.SaleDate, sale.CustomerID, sale.CustomerName, sale.Salesperson,
		sale.PaymentMethod, sale.PaymentStatus, sale.Notes,
	).Scan(&sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", sales.ErrDuplicateSaleNumber, sale.SaleNumber)
		}
		return err
	}
	return nil
}

func (r *SaleStore) Read(ctx context.Context, id string) (*sales.Sale, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sales.ErrNotFound
	}
	return r.readOne(ctx, selectSale+` WHERE id=$1`, id)
}

func (r *SaleStore) ReadByNumber(ctx context.Context, saleNumber string) (*sales.Sale, error) {
	return r.readOne(ctx, selectSale+` WHERE sale_number=$1`, saleNumber)
}

func (r *SaleStore) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return sales.ErrNotFound
	}
	return nil
}

func (r *SaleStore) GetAll(ctx context.Context) ([]*sales.Sale, error) {
	rows, err := r.DB.Query(ctx, selectSale+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*sales.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SaleStore) readOne(ctx context.Context, query string, arg any) (*sales.Sale, error) {
	s, err := scanSale(r.DB.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	return s, err
}

func scanSale(row pgx.Row) (*sales.Sale, error) {
	var (
		s       sales.Sale
		amounts [5]string
	)
	err := row.Scan(&s.ID, &s.SaleNumber, &s.ProductID, &s.Quantity,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		&s.SaleDate, &s.CustomerID, &s.CustomerName, &s.Salesperson,
		&s.PaymentMethod, &s.PaymentStatus, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	targets := []*decimal.Decimal{&s.UnitPrice, &s.TotalAmount, &s.DiscountPercentage, &s.DiscountAmount, &s.FinalAmount}
	for i, t := range targets {
		if *t, err = decimal.NewFromString(amounts[i]); err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
	}
	return &s, nil
}
