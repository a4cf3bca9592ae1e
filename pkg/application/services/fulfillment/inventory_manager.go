package fulfillment

import (
	"context"

	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/application/dto"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// LineConsumer deducts the stock for one order line
type LineConsumer interface {
	Execute(ctx context.Context, line entities.OrderLine) ([]entities.ConsumptionResult, error)
}

// LowStockReporter forwards results that crossed the reorder point
type LowStockReporter interface {
	NotifyLowStock(ctx context.Context, results []entities.ConsumptionResult) error
}

// InventoryManager consumes an order line by line and keeps going after a failed line.
// Lines that succeeded stay consumed.
type InventoryManager struct {
	consumer LineConsumer
	notifier LowStockReporter
	logger   *zap.Logger
}

// NewInventoryManager creates a new inventory manager
func NewInventoryManager(consumer LineConsumer, notifier LowStockReporter, logger *zap.Logger) *InventoryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryManager{
		consumer: consumer,
		notifier: notifier,
		logger:   logger.Named("inventory_manager"),
	}
}

// ProcessOrder consumes every line in order
func (m *InventoryManager) ProcessOrder(ctx context.Context, lines []entities.OrderLine) (*dto.ProcessOrderResult, error) {
	if len(lines) == 0 {
		return nil, entities.NewValidationError("order must contain at least one item")
	}

	result := &dto.ProcessOrderResult{
		ConsumedIngredients: make([]entities.ConsumptionResult, 0),
		FailedItems:         make([]entities.FailedOrderItem, 0),
	}

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			for _, skipped := range lines[i:] {
				result.FailedItems = append(result.FailedItems, entities.FailedOrderItem{MenuItemID: skipped.MenuItemID, Err: err})
			}
			break
		}

		consumed, err := m.consumer.Execute(ctx, line)
		if err != nil {
			m.logger.Warn("order line not fulfilled",
				zap.String("menu_item_id", string(line.MenuItemID)),
				zap.Int("quantity", line.Quantity),
				zap.Stringer("kind", entities.KindOf(err)),
				zap.Error(err))
			result.FailedItems = append(result.FailedItems, entities.FailedOrderItem{MenuItemID: line.MenuItemID, Err: err})
			continue
		}
		result.ConsumedIngredients = append(result.ConsumedIngredients, consumed...)

		reorder := needingReorder(consumed)
		if len(reorder) > 0 && m.notifier != nil {
			if err := m.notifier.NotifyLowStock(ctx, reorder); err != nil {
				m.logger.Error("low stock notification failed",
					zap.String("menu_item_id", string(line.MenuItemID)),
					zap.Error(err))
			}
		}
	}

	result.Successful = len(result.FailedItems) == 0
	return result, nil
}

func needingReorder(results []entities.ConsumptionResult) []entities.ConsumptionResult {
	var reorder []entities.ConsumptionResult
	for _, result := range results {
		if result.NeedsReorder {
			reorder = append(reorder, result)
		}
	}
	return reorder
}
