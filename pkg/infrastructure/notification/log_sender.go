package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// LogSender writes each alert as a warning
type LogSender struct {
	logger *zap.Logger
}

var _ services.NotificationService = (*LogSender)(nil)

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("low_stock")}
}

func (s *LogSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	for _, alert := range alerts {
		s.logger.Warn("ingredient needs reorder",
			zap.String("ingredient_id", string(alert.IngredientID)),
			zap.String("ingredient_name", alert.IngredientName),
			zap.String("current_stock", alert.CurrentStock.String()),
			zap.String("reorder_point", alert.ReorderPoint.String()),
			zap.String("min_stock", alert.MinStock.String()),
			zap.String("unit", alert.Unit))
	}
	return nil
}
