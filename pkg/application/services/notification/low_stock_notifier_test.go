package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	testhelpers "github.com/vsinha/fulfillment/pkg/infrastructure/testing"
)

func TestLowStockNotifier_EmptyInputIsNoop(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	sender := &testhelpers.RecordingNotificationService{}
	notifier := NewLowStockNotifier(kitchen.Ingredients, sender, zaptest.NewLogger(t))

	if err := notifier.NotifyLowStock(context.Background(), nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(sender.Batches()) != 0 {
		t.Errorf("Expected no alerts sent, got %d batches", len(sender.Batches()))
	}
}

func TestLowStockNotifier_UsesRepositoryMetadata(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	sender := &testhelpers.RecordingNotificationService{}
	notifier := NewLowStockNotifier(kitchen.Ingredients, sender, zaptest.NewLogger(t))

	results := []entities.ConsumptionResult{
		{IngredientID: "BUN", RemainingStock: decimal.NewFromInt(2), Unit: "pcs", NeedsReorder: true},
		{IngredientID: "GONE", IngredientName: "Gone", RemainingStock: decimal.Zero, Unit: "kg"},
	}
	if err := notifier.NotifyLowStock(context.Background(), results); err != nil {
		t.Fatalf("NotifyLowStock failed: %v", err)
	}

	batches := sender.Batches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("Expected one batch of 2 alerts, got %v", batches)
	}
	bun := batches[0][0]
	if bun.IngredientName != "Brioche Bun" || !bun.MinStock.Equal(decimal.NewFromInt(1)) || !bun.ReorderPoint.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected repository metadata for bun, got %+v", bun)
	}
	if !bun.CurrentStock.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected current stock from result, got %s", bun.CurrentStock)
	}
	if batches[0][1].IngredientName != "Gone" {
		t.Errorf("Expected fallback to result name, got %s", batches[0][1].IngredientName)
	}
}

func TestLowStockNotifier_PropagatesSenderError(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	sender := &testhelpers.RecordingNotificationService{Err: errors.New("smtp down")}
	notifier := NewLowStockNotifier(kitchen.Ingredients, sender, nil)

	err := notifier.NotifyLowStock(context.Background(), []entities.ConsumptionResult{{IngredientID: "BUN"}})
	if err == nil || err.Error() != "smtp down" {
		t.Errorf("Expected sender error, got %v", err)
	}
}
