// Package postgres stores ingredients, recipes and orders in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingredients (
    id             TEXT PRIMARY KEY,
    name           TEXT          NOT NULL,
    stock          NUMERIC(18,6) NOT NULL CHECK (stock >= 0),
    unit           TEXT          NOT NULL,
    min_stock      NUMERIC(18,6) NOT NULL,
    reorder_point  NUMERIC(18,6) NOT NULL,
    cost_per_unit  NUMERIC(18,6) NOT NULL,
    version        BIGINT        NOT NULL DEFAULT 1,
    updated_at     TIMESTAMPTZ   NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS menu_items (
    id     TEXT PRIMARY KEY,
    name   TEXT          NOT NULL,
    price  NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
    menu_item_id   TEXT          NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
    position       INT           NOT NULL,
    ingredient_id  TEXT          NOT NULL,
    quantity       NUMERIC(18,6) NOT NULL,
    unit           TEXT          NOT NULL DEFAULT '',
    PRIMARY KEY (menu_item_id, position)
);

CREATE TABLE IF NOT EXISTS orders (
    id                    TEXT PRIMARY KEY,
    table_number          INT           NOT NULL,
    customer_name         TEXT          NOT NULL,
    total                 NUMERIC(12,2) NOT NULL,
    special_instructions  TEXT          NOT NULL DEFAULT '',
    status                TEXT          NOT NULL,
    created_at            TIMESTAMPTZ   NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    order_id              TEXT          NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position              INT           NOT NULL,
    menu_item_id          TEXT          NOT NULL,
    menu_item_name        TEXT          NOT NULL DEFAULT '',
    quantity              INT           NOT NULL,
    price                 NUMERIC(12,2) NOT NULL,
    special_instructions  TEXT          NOT NULL DEFAULT '',
    PRIMARY KEY (order_id, position)
);
`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pool and verifies the server is reachable
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// Numerics travel as text in both directions (col::text, $n::text::numeric) so no
// precision is lost on the way to or from decimal.Decimal.
func parseDecimals(column []string, values ...string) ([]decimal.Decimal, error) {
	parsed := make([]decimal.Decimal, len(values))
	for i, value := range values {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column[i], err)
		}
		parsed[i] = d
	}
	return parsed, nil
}

// inTx runs fn in a transaction and commits when it returns nil
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
