package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/infrastructure/events"
)

// DefaultMaxAttempts bounds the retries after a concurrent update
const DefaultMaxAttempts = 3

// InventoryService handles stock movements that do not come from orders
type InventoryService struct {
	ingredients repositories.IngredientRepository
	eventStore  events.EventStore
	maxAttempts int
	logger      *zap.Logger
}

// NewInventoryService creates a new inventory service. eventStore may be nil.
func NewInventoryService(ingredients repositories.IngredientRepository, eventStore events.EventStore, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		ingredients: ingredients,
		eventStore:  eventStore,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.Named("inventory"),
	}
}

// Replenish adds quantity to an ingredient's stock and returns the stored ingredient
func (s *InventoryService) Replenish(ctx context.Context, id entities.IngredientID, quantity decimal.Decimal) (*entities.Ingredient, error) {
	if !quantity.IsPositive() {
		return nil, entities.NewValidationError("restock quantity for %s must be positive, got %s", id, quantity.String())
	}

	for attempt := 1; ; attempt++ {
		current, err := s.ingredients.FindByID(ctx, id)
		if err != nil {
			return nil, entities.AsPersistenceError("find ingredient", err)
		}

		updated, err := current.Replenish(quantity)
		if err != nil {
			return nil, err
		}

		err = s.ingredients.SaveAll(ctx, []*entities.Ingredient{updated})
		if err == nil {
			stored := updated.WithVersion(current.Version() + 1)
			s.logger.Info("ingredient restocked",
				zap.String("ingredient_id", string(id)),
				zap.String("added", quantity.String()),
				zap.String("stock", stored.CurrentStock().String()),
				zap.String("unit", stored.Unit()))
			s.publish(ctx, events.NewInventoryReplenishedEvent(stored, quantity))
			return stored, nil
		}
		if !errors.Is(err, entities.ErrConcurrentUpdate) || attempt >= s.maxAttempts {
			return nil, err
		}
		s.logger.Debug("retrying restock after concurrent update",
			zap.String("ingredient_id", string(id)),
			zap.Int("attempt", attempt))
	}
}

// ReorderReport returns the ingredients at or below their reorder point, in the order given
func (s *InventoryService) ReorderReport(ctx context.Context, ids []entities.IngredientID) ([]entities.LowStockAlert, error) {
	found, err := s.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, entities.AsPersistenceError("find ingredients", err)
	}

	alerts := make([]entities.LowStockAlert, 0)
	for _, ingredient := range found {
		if !ingredient.NeedsReorder() {
			continue
		}
		alerts = append(alerts, entities.LowStockAlert{
			IngredientID:   ingredient.ID(),
			IngredientName: ingredient.Name(),
			CurrentStock:   ingredient.CurrentStock(),
			MinStock:       ingredient.MinStock(),
			ReorderPoint:   ingredient.ReorderPoint(),
			Unit:           ingredient.Unit(),
		})
	}
	return alerts, nil
}

func (s *InventoryService) publish(ctx context.Context, event events.Event) {
	if s.eventStore == nil {
		return
	}
	if _, err := s.eventStore.Append(ctx, event); err != nil {
		s.logger.Warn("event not recorded", zap.String("event_type", event.Type), zap.Error(err))
	}
}
