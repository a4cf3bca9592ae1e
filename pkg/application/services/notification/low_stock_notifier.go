package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// LowStockNotifier turns consumption results into low-stock alerts. It does not filter:
// callers pass only the results they want reported.
type LowStockNotifier struct {
	ingredients repositories.IngredientRepository
	sender      services.NotificationService
	logger      *zap.Logger
}

// NewLowStockNotifier creates a new low stock notifier
func NewLowStockNotifier(
	ingredients repositories.IngredientRepository,
	sender services.NotificationService,
	logger *zap.Logger,
) *LowStockNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockNotifier{
		ingredients: ingredients,
		sender:      sender,
		logger:      logger.Named("low_stock_notifier"),
	}
}

// NotifyLowStock sends one alert per result, with thresholds read from the repository
func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, results []entities.ConsumptionResult) error {
	if len(results) == 0 {
		return nil
	}

	ids := make([]entities.IngredientID, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.IngredientID)
	}
	found, err := n.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return entities.AsPersistenceError("find ingredients", err)
	}
	byID := make(map[entities.IngredientID]*entities.Ingredient, len(found))
	for _, ingredient := range found {
		byID[ingredient.ID()] = ingredient
	}

	alerts := make([]entities.LowStockAlert, 0, len(results))
	for _, result := range results {
		alert := entities.LowStockAlert{
			IngredientID:   result.IngredientID,
			IngredientName: result.IngredientName,
			CurrentStock:   result.RemainingStock,
			Unit:           result.Unit,
		}
		if ingredient, ok := byID[result.IngredientID]; ok {
			alert.IngredientName = ingredient.Name()
			alert.MinStock = ingredient.MinStock()
			alert.ReorderPoint = ingredient.ReorderPoint()
			alert.Unit = ingredient.Unit()
		} else {
			n.logger.Warn("ingredient vanished before alerting",
				zap.String("ingredient_id", string(result.IngredientID)))
		}
		alerts = append(alerts, alert)
	}

	return n.sender.SendLowStockAlert(ctx, alerts)
}
