package testing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/memory"
)

// Kitchen bundles the in-memory repositories of a test scenario
type Kitchen struct {
	Ingredients *memory.IngredientRepository
	MenuItems   *memory.MenuItemRepository
	Orders      *memory.OrderRepository
}

// BuildBurgerKitchen builds a small diner: burgers (1 patty, 2 buns), fries and a salad.
// Patty stock 4, bun stock 10 with reorder point 2, potato 5 kg, lettuce 1 kg.
func BuildBurgerKitchen() *Kitchen {
	menuItems := memory.NewMenuItemRepository(3)
	ingredients := memory.NewIngredientRepository(menuItems)

	for _, ingredient := range []*entities.Ingredient{
		MustCreateIngredient("PATTY", "Beef Patty", "4", "pcs", "1", "2", "1.80"),
		MustCreateIngredient("BUN", "Brioche Bun", "10", "pcs", "1", "2", "0.45"),
		MustCreateIngredient("POTATO", "Potato", "5", "kg", "1", "1.5", "0.90"),
		MustCreateIngredient("LETTUCE", "Lettuce", "1", "kg", "0.2", "0.5", "3.20"),
	} {
		if err := ingredients.AddIngredient(ingredient); err != nil {
			panic(err)
		}
	}

	for _, item := range []*entities.MenuItem{
		MustCreateMenuItem("BURGER", "Burger", "8.50",
			Ref("PATTY", "1", "pcs"), Ref("BUN", "2", "pcs")),
		MustCreateMenuItem("FRIES", "Fries", "3.25",
			Ref("POTATO", "0.25", "kg")),
		MustCreateMenuItem("SALAD", "Side Salad", "4.00",
			Ref("LETTUCE", "0.15", "kg")),
	} {
		if err := menuItems.AddMenuItem(item); err != nil {
			panic(err)
		}
	}

	return &Kitchen{
		Ingredients: ingredients,
		MenuItems:   menuItems,
		Orders:      memory.NewOrderRepository(),
	}
}

// MustCreateIngredient is a helper for tests - panics on validation error
func MustCreateIngredient(id, name, stock, unit, minStock, reorderPoint, cost string) *entities.Ingredient {
	ingredient, err := entities.NewIngredient(
		entities.IngredientID(id),
		name,
		decimal.RequireFromString(stock),
		unit,
		decimal.RequireFromString(minStock),
		decimal.RequireFromString(reorderPoint),
		decimal.RequireFromString(cost),
	)
	if err != nil {
		panic(err)
	}
	return ingredient
}

// MustCreateMenuItem is a helper for tests - panics on validation error
func MustCreateMenuItem(id, name, price string, refs ...entities.IngredientReference) *entities.MenuItem {
	item, err := entities.NewMenuItem(entities.MenuItemID(id), name, decimal.RequireFromString(price), refs)
	if err != nil {
		panic(err)
	}
	return item
}

// Ref builds a recipe reference
func Ref(id, quantity, unit string) entities.IngredientReference {
	return entities.IngredientReference{
		IngredientID: entities.IngredientID(id),
		Quantity:     decimal.RequireFromString(quantity),
		Unit:         unit,
	}
}

// Item builds an order item priced from a string
func Item(menuItemID string, quantity int, price string) entities.OrderItem {
	return entities.OrderItem{
		MenuItemID:   entities.MenuItemID(menuItemID),
		MenuItemName: menuItemID,
		Quantity:     quantity,
		Price:        decimal.RequireFromString(price),
	}
}

// RecordingNotificationService captures every alert batch it is sent
type RecordingNotificationService struct {
	mu      sync.Mutex
	batches [][]entities.LowStockAlert

	// Err is returned from every call when set
	Err error
}

var _ services.NotificationService = (*RecordingNotificationService)(nil)

func (s *RecordingNotificationService) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]entities.LowStockAlert(nil), alerts...))
	return s.Err
}

// Batches returns the recorded alert batches
func (s *RecordingNotificationService) Batches() [][]entities.LowStockAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]entities.LowStockAlert(nil), s.batches...)
}

// Alerts returns every recorded alert in send order
func (s *RecordingNotificationService) Alerts() []entities.LowStockAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var alerts []entities.LowStockAlert
	for _, batch := range s.batches {
		alerts = append(alerts, batch...)
	}
	return alerts
}
