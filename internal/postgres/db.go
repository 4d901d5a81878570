package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the sales pool and pings it. maxConns bounds concurrent sagas
// hitting the store; values below 1 keep pgx's default.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sales (
	id                  UUID PRIMARY KEY,
	sale_number         TEXT NOT NULL UNIQUE,
	product_id          TEXT NOT NULL,
	quantity            INTEGER NOT NULL CHECK (quantity > 0),
	unit_price          NUMERIC NOT NULL,
	total_amount        NUMERIC NOT NULL,
	discount_percentage NUMERIC NOT NULL DEFAULT 0,
	discount_amount     NUMERIC NOT NULL DEFAULT 0,
	final_amount        NUMERIC NOT NULL,
	sale_date           DATE NOT NULL,
	customer_id         TEXT NOT NULL DEFAULT '',
	customer_name       TEXT NOT NULL DEFAULT '',
	salesperson         TEXT NOT NULL DEFAULT '',
	payment_method      TEXT NOT NULL DEFAULT '',
	payment_status      TEXT NOT NULL DEFAULT 'pending',
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sales_customer_id_idx ON sales (customer_id);
CREATE INDEX IF NOT EXISTS sales_product_id_idx ON sales (product_id);
`

// Migrate creates the sales table when it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
