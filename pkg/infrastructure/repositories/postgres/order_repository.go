package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// uniqueViolation is the SQLSTATE for a duplicate primary key
const uniqueViolation = "23505"

type OrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, now: time.Now}
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// SubmitOrder inserts the order and its items in one transaction
func (r *OrderRepository) SubmitOrder(ctx context.Context, order *entities.Order) (string, error) {
	id := order.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	status := order.Status
	if status == "" {
		status = entities.OrderPending
	}

	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, table_number, customer_name, total, special_instructions, status, created_at)
			VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7)`,
			id, order.TableNumber, order.CustomerName, order.Total.String(),
			order.SpecialInstructions, string(status), createdAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range order.Items {
			batch.Queue(`
				INSERT INTO order_items
					(order_id, position, menu_item_id, menu_item_name, quantity, price, special_instructions)
				VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7)`,
				id, i, string(item.MenuItemID), item.MenuItemName, item.Quantity,
				item.Price.String(), item.SpecialInstructions)
		}
		return tx.SendBatch(ctx, batch).Close()
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return "", entities.NewValidationError("order %s already exists", id)
	}
	if err != nil {
		return "", entities.NewPersistenceError("submit order", err)
	}
	return id, nil
}

// GetOrder loads an order and its items
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*entities.Order, error) {
	order := &entities.Order{ID: id}
	var total, status string
	err := r.pool.QueryRow(ctx, `
		SELECT table_number, customer_name, total::text, special_instructions, status, created_at
		FROM   orders WHERE id = $1`, id).
		Scan(&order.TableNumber, &order.CustomerName, &total, &order.SpecialInstructions, &status, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.NewNotFoundError("order not found: %s", id)
	}
	if err != nil {
		return nil, entities.NewPersistenceError("get order", err)
	}
	order.Status = entities.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()

	parsed, err := parseDecimals([]string{"total"}, total)
	if err != nil {
		return nil, entities.NewPersistenceError("get order", err)
	}
	order.Total = parsed[0]

	rows, err := r.pool.Query(ctx, `
		SELECT menu_item_id, menu_item_name, quantity, price::text, special_instructions
		FROM   order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, entities.NewPersistenceError("get order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entities.OrderItem
		var menuItemID, price string
		if err := rows.Scan(&menuItemID, &item.MenuItemName, &item.Quantity, &price, &item.SpecialInstructions); err != nil {
			return nil, entities.NewPersistenceError("get order items", err)
		}
		parsed, err := parseDecimals([]string{"price"}, price)
		if err != nil {
			return nil, entities.NewPersistenceError("get order items", err)
		}
		item.MenuItemID = entities.MenuItemID(menuItemID)
		item.Price = parsed[0]
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, entities.NewPersistenceError("get order items", err)
	}
	return order, nil
}

// UpdateStatus records the fulfillment outcome of an order
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return entities.NewPersistenceError("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.NewNotFoundError("order not found: %s", id)
	}
	return nil
}
