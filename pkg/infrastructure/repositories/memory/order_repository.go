package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// OrderRepository provides in-memory order storage
type OrderRepository struct {
	mu     sync.RWMutex
	orders []*entities.Order
	byID   map[string]int
	now    func() time.Time
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byID: make(map[string]int),
		now:  time.Now,
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// SubmitOrder stores a copy of the order, assigning an id and timestamp when missing
func (r *OrderRepository) SubmitOrder(ctx context.Context, order *entities.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", entities.NewPersistenceError("submit order", err)
	}

	stored := *order
	stored.Items = append([]entities.OrderItem(nil), order.Items...)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	if stored.Status == "" {
		stored.Status = entities.OrderPending
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[stored.ID]; exists {
		return "", entities.NewValidationError("order %s already exists", stored.ID)
	}
	r.byID[stored.ID] = len(r.orders)
	r.orders = append(r.orders, &stored)
	return stored.ID, nil
}

// GetOrder returns a stored order or a NotFoundError
func (r *OrderRepository) GetOrder(id string) (*entities.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.byID[id]
	if !exists {
		return nil, entities.NewNotFoundError("order not found: %s", id)
	}
	return r.orders[index], nil
}

// GetAllOrders returns all orders in submission order
func (r *OrderRepository) GetAllOrders() []*entities.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*entities.Order, len(r.orders))
	copy(orders, r.orders)
	return orders
}

// UpdateStatus records the fulfillment outcome of an order
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, exists := r.byID[id]
	if !exists {
		return entities.NewNotFoundError("order not found: %s", id)
	}
	updated := *r.orders[index]
	updated.Status = status
	r.orders[index] = &updated
	return nil
}
