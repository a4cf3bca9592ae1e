package fulfillment

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/vsinha/fulfillment/pkg/application/services/consumption"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	testhelpers "github.com/vsinha/fulfillment/pkg/infrastructure/testing"
)

type stubReporter struct {
	calls   int
	results []entities.ConsumptionResult
	err     error
}

func (s *stubReporter) NotifyLowStock(ctx context.Context, results []entities.ConsumptionResult) error {
	s.calls++
	s.results = append(s.results, results...)
	return s.err
}

// cancellingConsumer cancels the context after the first line
type cancellingConsumer struct {
	LineConsumer
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingConsumer) Execute(ctx context.Context, line entities.OrderLine) ([]entities.ConsumptionResult, error) {
	c.calls++
	defer c.cancel()
	return c.LineConsumer.Execute(ctx, line)
}

func newInventoryManager(t *testing.T, reporter LowStockReporter) (*InventoryManager, *testhelpers.Kitchen) {
	t.Helper()
	kitchen := testhelpers.BuildBurgerKitchen()
	useCase := consumption.NewConsumptionUseCase(kitchen.MenuItems, kitchen.Ingredients)
	return NewInventoryManager(useCase, reporter, zaptest.NewLogger(t)), kitchen
}

func TestInventoryManager_ProcessOrder(t *testing.T) {
	reporter := &stubReporter{}
	manager, kitchen := newInventoryManager(t, reporter)

	result, err := manager.ProcessOrder(context.Background(), []entities.OrderLine{
		{MenuItemID: "BURGER", Quantity: 2},
		{MenuItemID: "FRIES", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	if !result.Successful || len(result.FailedItems) != 0 {
		t.Fatalf("Expected full success, got %+v", result.FailedItems)
	}
	if len(result.ConsumedIngredients) != 3 {
		t.Errorf("Expected 3 consumption results, got %d", len(result.ConsumedIngredients))
	}

	patty, _ := kitchen.Ingredients.FindByID(context.Background(), "PATTY")
	if !patty.CurrentStock().Equal(d("2")) {
		t.Errorf("Expected 2 patties left, got %s", patty.CurrentStock())
	}

	// 2 patties left sits on the reorder point
	if reporter.calls != 1 || len(reporter.results) != 1 || reporter.results[0].IngredientID != "PATTY" {
		t.Errorf("Expected one PATTY notification, got %d calls %+v", reporter.calls, reporter.results)
	}
}

func TestInventoryManager_ContinuesAfterFailedLine(t *testing.T) {
	manager, kitchen := newInventoryManager(t, nil)

	result, err := manager.ProcessOrder(context.Background(), []entities.OrderLine{
		{MenuItemID: "BURGER", Quantity: 3},
		{MenuItemID: "BURGER", Quantity: 3},
		{MenuItemID: "MISSING", Quantity: 1},
		{MenuItemID: "FRIES", Quantity: 4},
	})
	if err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	if result.Successful {
		t.Fatal("Expected partial result")
	}

	if len(result.FailedItems) != 2 {
		t.Fatalf("Expected 2 failed lines, got %d", len(result.FailedItems))
	}
	if entities.KindOf(result.FailedItems[0].Err) != entities.KindInsufficientStock {
		t.Errorf("Expected second burger line to lack stock, got %v", result.FailedItems[0].Err)
	}
	if entities.KindOf(result.FailedItems[1].Err) != entities.KindNotFound {
		t.Errorf("Expected missing menu item, got %v", result.FailedItems[1].Err)
	}

	// the first burger line is not rolled back
	patty, _ := kitchen.Ingredients.FindByID(context.Background(), "PATTY")
	if !patty.CurrentStock().Equal(d("1")) {
		t.Errorf("Expected 1 patty left, got %s", patty.CurrentStock())
	}
	potato, _ := kitchen.Ingredients.FindByID(context.Background(), "POTATO")
	if !potato.CurrentStock().Equal(d("4")) {
		t.Errorf("Expected 4 kg potato left, got %s", potato.CurrentStock())
	}
}

func TestInventoryManager_EmptyOrder(t *testing.T) {
	manager, _ := newInventoryManager(t, nil)

	_, err := manager.ProcessOrder(context.Background(), nil)
	if err == nil {
		t.Fatal("Expected error for empty order")
	}
	if err.Error() != "order must contain at least one item" {
		t.Errorf("Unexpected error: %s", err.Error())
	}
}

func TestInventoryManager_StopsOnCancelledContext(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &cancellingConsumer{
		LineConsumer: consumption.NewConsumptionUseCase(kitchen.MenuItems, kitchen.Ingredients),
		cancel:       cancel,
	}
	manager := NewInventoryManager(consumer, nil, zaptest.NewLogger(t))

	result, err := manager.ProcessOrder(ctx, []entities.OrderLine{
		{MenuItemID: "FRIES", Quantity: 1},
		{MenuItemID: "BURGER", Quantity: 1},
		{MenuItemID: "SALAD", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	if consumer.calls != 1 {
		t.Errorf("Expected one consumed line, got %d", consumer.calls)
	}
	if len(result.FailedItems) != 2 {
		t.Fatalf("Expected 2 skipped lines, got %d", len(result.FailedItems))
	}
	for _, failed := range result.FailedItems {
		if !errors.Is(failed.Err, context.Canceled) {
			t.Errorf("Expected %s to fail with context.Canceled, got %v", failed.MenuItemID, failed.Err)
		}
	}
}

func TestInventoryManager_NotifierFailureIsNotFatal(t *testing.T) {
	reporter := &stubReporter{err: errors.New("queue full")}
	manager, _ := newInventoryManager(t, reporter)

	result, err := manager.ProcessOrder(context.Background(), []entities.OrderLine{
		{MenuItemID: "BURGER", Quantity: 4},
	})
	if err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	if !result.Successful {
		t.Errorf("Expected success despite notifier failure, got %+v", result.FailedItems)
	}
	if reporter.calls != 1 {
		t.Errorf("Expected one notification attempt, got %d", reporter.calls)
	}
}
