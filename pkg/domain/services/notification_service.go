package services

import (
	"context"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// NotificationService delivers low-stock alerts to whoever restocks the kitchen.
// Implementations decide the transport; callers treat failures as non-fatal.
type NotificationService interface {
	SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error
}
