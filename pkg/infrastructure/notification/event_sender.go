package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
	"github.com/vsinha/fulfillment/pkg/infrastructure/events"
)

// EventStoreSender appends an inventory.low_stock event per alert
type EventStoreSender struct {
	store events.EventStore
}

var _ services.NotificationService = (*EventStoreSender)(nil)

func NewEventStoreSender(store events.EventStore) *EventStoreSender {
	return &EventStoreSender{store: store}
}

func (s *EventStoreSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	var errs []error
	for _, alert := range alerts {
		if _, err := s.store.Append(ctx, events.NewLowStockDetectedEvent(alert)); err != nil {
			errs = append(errs, fmt.Errorf("record low stock event for %s: %w", alert.IngredientID, err))
		}
	}
	return errors.Join(errs...)
}

// FanoutSender sends every batch to each sender and joins their errors
type FanoutSender struct {
	senders []services.NotificationService
}

var _ services.NotificationService = (*FanoutSender)(nil)

func NewFanoutSender(senders ...services.NotificationService) *FanoutSender {
	return &FanoutSender{senders: senders}
}

func (s *FanoutSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	var errs []error
	for _, sender := range s.senders {
		if err := sender.SendLowStockAlert(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
