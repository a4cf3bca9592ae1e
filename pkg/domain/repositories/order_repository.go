package repositories

import (
	"context"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// OrderRepository persists submitted orders
type OrderRepository interface {
	// SubmitOrder stores the order and returns its id
	SubmitOrder(ctx context.Context, order *entities.Order) (string, error)
}
