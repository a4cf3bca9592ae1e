package deduction

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	testhelpers "github.com/vsinha/fulfillment/pkg/infrastructure/testing"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func stockOf(t *testing.T, kitchen *testhelpers.Kitchen, id entities.IngredientID) decimal.Decimal {
	t.Helper()
	ingredient, err := kitchen.Ingredients.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s) failed: %v", id, err)
	}
	return ingredient.CurrentStock()
}

func TestIngredientDeductionService_CheckAvailability(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	service := NewIngredientDeductionService(kitchen.Ingredients, nil)

	err := service.CheckAvailability(context.Background(), []entities.OrderItem{
		testhelpers.Item("BURGER", 4, "8.50"),
		testhelpers.Item("FRIES", 2, "3.25"),
	})
	if err != nil {
		t.Errorf("Expected order to be available, got %v", err)
	}

	err = service.CheckAvailability(context.Background(), []entities.OrderItem{
		testhelpers.Item("BURGER", 5, "8.50"),
		testhelpers.Item("FRIES", 1, "3.25"),
		testhelpers.Item("SALAD", 7, "4.00"),
	})
	var shortage *entities.InsufficientStockError
	if !errors.As(err, &shortage) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	expectedMsg := "insufficient stock for menu items: " +
		"Burger (Beef Patty: required 5 pcs, available 4 pcs), " +
		"Side Salad (Lettuce: required 1.05 kg, available 1 kg)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error '%s', got '%s'", expectedMsg, err.Error())
	}
	if !stockOf(t, kitchen, "PATTY").Equal(d("4")) {
		t.Error("CheckAvailability must not change stock")
	}
}

func TestIngredientDeductionService_EmptyOrder(t *testing.T) {
	service := NewIngredientDeductionService(testhelpers.BuildBurgerKitchen().Ingredients, nil)

	for name, call := range map[string]func() error{
		"check":   func() error { return service.CheckAvailability(context.Background(), nil) },
		"deduct":  func() error { _, err := service.DeductIngredients(context.Background(), nil); return err },
		"preview": func() error { _, err := service.PreviewImpact(context.Background(), nil); return err },
	} {
		err := call()
		if entities.KindOf(err) != entities.KindValidation {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}
}

// Burger needs 1 patty and 2 buns; 4 burgers empty the patties and leave 2 buns.
func TestIngredientDeductionService_BurgerEndToEnd(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	service := NewIngredientDeductionService(kitchen.Ingredients, nil)

	impacts, err := service.DeductIngredients(context.Background(), []entities.OrderItem{testhelpers.Item("BURGER", 4, "8.50")})
	if err != nil {
		t.Fatalf("DeductIngredients failed: %v", err)
	}
	if len(impacts) != 2 {
		t.Fatalf("Expected 2 impacts, got %d", len(impacts))
	}

	patty, bun := impacts[0], impacts[1]
	if patty.IngredientID != "PATTY" || !patty.RemainingStock.IsZero() || !patty.IsLowStock || !patty.NeedsReorder {
		t.Errorf("Unexpected patty impact: %+v", patty)
	}
	if bun.IngredientID != "BUN" || !bun.RemainingStock.Equal(d("2")) || !bun.ConsumedQuantity.Equal(d("8")) {
		t.Errorf("Unexpected bun impact: %+v", bun)
	}
	if !bun.NeedsReorder {
		t.Error("Bun at 2 with reorder point 2 should need reorder")
	}
	if bun.IsLowStock {
		t.Error("Bun at 2 with min stock 1 should not be low yet")
	}

	if !stockOf(t, kitchen, "PATTY").IsZero() || !stockOf(t, kitchen, "BUN").Equal(d("2")) {
		t.Error("Stored stock does not match impacts")
	}
}

func TestIngredientDeductionService_PreviewNeverChangesStock(t *testing.T) {
	kitchen := testhelpers.BuildBurgerKitchen()
	service := NewIngredientDeductionService(kitchen.Ingredients, nil)
	items := []entities.OrderItem{testhelpers.Item("BURGER", 2, "8.50"), testhelpers.Item("FRIES", 4, "3.25")}

	for i := 0; i < 3; i++ {
		impacts, err := service.PreviewImpact(context.Background(), items)
		if err != nil {
			t.Fatalf("PreviewImpact failed: %v", err)
		}
		if len(impacts) != 3 || !impacts[2].RemainingStock.Equal(d("4")) {
			t.Errorf("Unexpected preview: %+v", impacts)
		}
	}

	if !stockOf(t, kitchen, "PATTY").Equal(d("4")) || !stockOf(t, kitchen, "POTATO").Equal(d("5")) {
		t.Error("Preview must not change stock")
	}

	_, err := service.PreviewImpact(context.Background(), []entities.OrderItem{testhelpers.Item("BURGER", 9, "8.50")})
	if entities.KindOf(err) != entities.KindInsufficientStock {
		t.Errorf("Expected InsufficientStockError for impossible preview, got %v", err)
	}
}

func TestIngredientDeductionService_InvalidQuantity(t *testing.T) {
	service := NewIngredientDeductionService(testhelpers.BuildBurgerKitchen().Ingredients, nil)

	_, err := service.DeductIngredients(context.Background(), []entities.OrderItem{testhelpers.Item("BURGER", 0, "8.50")})
	if err == nil || err.Error() != "item BURGER: quantity must be at least 1, got 0" {
		t.Errorf("Expected quantity validation error, got %v", err)
	}
}
