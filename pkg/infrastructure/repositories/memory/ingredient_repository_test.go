package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func setupKitchen(t *testing.T) (*IngredientRepository, *MenuItemRepository) {
	t.Helper()

	menu := NewMenuItemRepository(2)
	burger, err := entities.NewMenuItem("BURGER", "Burger", d("8.50"), []entities.IngredientReference{
		{IngredientID: "PATTY", Quantity: d("1"), Unit: "pcs"},
		{IngredientID: "BUN", Quantity: d("1"), Unit: "pcs"},
	})
	if err != nil {
		t.Fatalf("Failed to create burger: %v", err)
	}
	fries, err := entities.NewMenuItem("FRIES", "Fries", d("3"), []entities.IngredientReference{
		{IngredientID: "POTATO", Quantity: d("0.25"), Unit: "kg"},
	})
	if err != nil {
		t.Fatalf("Failed to create fries: %v", err)
	}
	if err := menu.LoadMenuItems([]*entities.MenuItem{burger, fries}); err != nil {
		t.Fatalf("Failed to load menu: %v", err)
	}

	repo := NewIngredientRepository(menu)
	for _, spec := range []struct{ id, name, stock, unit string }{
		{"PATTY", "Beef Patty", "5", "pcs"},
		{"BUN", "Bun", "10", "pcs"},
		{"POTATO", "Potato", "2", "kg"},
	} {
		ingredient, err := entities.NewIngredient(entities.IngredientID(spec.id), spec.name, d(spec.stock), spec.unit, d("1"), d("2"), d("0.4"))
		if err != nil {
			t.Fatalf("Failed to create %s: %v", spec.id, err)
		}
		if err := repo.AddIngredient(ingredient); err != nil {
			t.Fatalf("Failed to add %s: %v", spec.id, err)
		}
	}
	return repo, menu
}

func stockOf(t *testing.T, repo *IngredientRepository, id entities.IngredientID) decimal.Decimal {
	t.Helper()
	ingredient, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s) failed: %v", id, err)
	}
	return ingredient.CurrentStock()
}

func TestIngredientRepository_FindByID(t *testing.T) {
	repo, _ := setupKitchen(t)

	ingredient, err := repo.FindByID(context.Background(), "PATTY")
	if err != nil {
		t.Fatalf("Failed to find PATTY: %v", err)
	}
	if ingredient.Name() != "Beef Patty" || ingredient.Version() != 1 {
		t.Errorf("Unexpected ingredient %s at version %d", ingredient.Name(), ingredient.Version())
	}

	_, err = repo.FindByID(context.Background(), "TRUFFLE")
	if entities.KindOf(err) != entities.KindNotFound {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
	if err.Error() != "ingredient not found: TRUFFLE" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
}

func TestIngredientRepository_FindByIDsOmitsMissing(t *testing.T) {
	repo, _ := setupKitchen(t)

	found, err := repo.FindByIDs(context.Background(), []entities.IngredientID{"BUN", "TRUFFLE", "PATTY"})
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}
	if len(found) != 2 || found[0].ID() != "BUN" || found[1].ID() != "PATTY" {
		t.Errorf("Expected [BUN PATTY], got %d ingredients", len(found))
	}
}

func TestIngredientRepository_AddDuplicate(t *testing.T) {
	repo, _ := setupKitchen(t)
	ingredient, _ := repo.FindByID(context.Background(), "BUN")

	err := repo.AddIngredient(ingredient)
	if err == nil || err.Error() != "ingredient BUN already exists" {
		t.Errorf("Expected duplicate error, got %v", err)
	}
}

func TestIngredientRepository_SaveAllBumpsVersion(t *testing.T) {
	repo, _ := setupKitchen(t)
	ctx := context.Background()

	patty, _ := repo.FindByID(ctx, "PATTY")
	consumed, err := patty.Consume(d("2"))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := repo.SaveAll(ctx, []*entities.Ingredient{consumed}); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	stored, _ := repo.FindByID(ctx, "PATTY")
	if !stored.CurrentStock().Equal(d("3")) || stored.Version() != 2 {
		t.Errorf("Expected stock 3 at version 2, got %s at %d", stored.CurrentStock(), stored.Version())
	}
}

func TestIngredientRepository_SaveAllRejectsStaleBatch(t *testing.T) {
	repo, _ := setupKitchen(t)
	ctx := context.Background()

	patty, _ := repo.FindByID(ctx, "PATTY")
	bun, _ := repo.FindByID(ctx, "BUN")

	// another writer gets in first
	first, _ := patty.Consume(d("1"))
	if err := repo.SaveAll(ctx, []*entities.Ingredient{first}); err != nil {
		t.Fatalf("First SaveAll failed: %v", err)
	}

	lessBun, _ := bun.Consume(d("1"))
	stalePatty, _ := patty.Consume(d("1"))
	err := repo.SaveAll(ctx, []*entities.Ingredient{lessBun, stalePatty})
	if !errors.Is(err, entities.ErrConcurrentUpdate) {
		t.Fatalf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if !entities.IsRetryable(err) {
		t.Error("Expected concurrent update to be retryable")
	}
	if err.Error() != "save ingredients: ingredient PATTY: ingredient was modified concurrently" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}

	if !stockOf(t, repo, "BUN").Equal(d("10")) {
		t.Error("Rejected batch must not write any ingredient")
	}
	if !stockOf(t, repo, "PATTY").Equal(d("4")) {
		t.Error("Expected only the first write to be applied")
	}
}

func TestIngredientRepository_CheckAvailability(t *testing.T) {
	repo, _ := setupKitchen(t)

	results, err := repo.CheckAvailability(context.Background(), []repositories.DeductionRequest{
		{MenuItemID: "BURGER", Quantity: 6},
		{MenuItemID: "FRIES", Quantity: 8},
	})
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Available || len(results[0].MissingIngredients) != 1 || results[0].MissingIngredients[0].IngredientID != "PATTY" {
		t.Errorf("Expected burger short of patties, got %+v", results[0])
	}
	if !results[1].Available {
		t.Errorf("Expected fries to be available, got %+v", results[1])
	}
	if !stockOf(t, repo, "PATTY").Equal(d("5")) {
		t.Error("CheckAvailability must not change stock")
	}

	_, err = repo.CheckAvailability(context.Background(), []repositories.DeductionRequest{{MenuItemID: "PIZZA", Quantity: 1}})
	if entities.KindOf(err) != entities.KindNotFound {
		t.Errorf("Expected NotFoundError for unknown menu item, got %v", err)
	}
}

func TestIngredientRepository_DeductIngredients(t *testing.T) {
	repo, _ := setupKitchen(t)
	ctx := context.Background()

	results, err := repo.DeductIngredients(ctx, []repositories.DeductionRequest{
		{MenuItemID: "BURGER", Quantity: 2},
		{MenuItemID: "FRIES", Quantity: 4},
	})
	if err != nil {
		t.Fatalf("DeductIngredients failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[2].IngredientID != "POTATO" || !results[2].Consumed.Equal(d("1")) || !results[2].Remaining.Equal(d("1")) {
		t.Errorf("Unexpected potato result: %+v", results[2])
	}

	patty, _ := repo.FindByID(ctx, "PATTY")
	if !patty.CurrentStock().Equal(d("3")) || patty.Version() != 2 {
		t.Errorf("Expected patty 3 at version 2, got %s at %d", patty.CurrentStock(), patty.Version())
	}
}

func TestIngredientRepository_DeductIngredientsAllOrNothing(t *testing.T) {
	repo, _ := setupKitchen(t)

	_, err := repo.DeductIngredients(context.Background(), []repositories.DeductionRequest{
		{MenuItemID: "FRIES", Quantity: 1},
		{MenuItemID: "BURGER", Quantity: 6},
	})
	if entities.KindOf(err) != entities.KindInsufficientStock {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if !stockOf(t, repo, "POTATO").Equal(d("2")) {
		t.Error("Failed deduction must leave every ingredient untouched")
	}
}

func TestIngredientRepository_PreviewDeduction(t *testing.T) {
	repo, _ := setupKitchen(t)
	requests := []repositories.DeductionRequest{{MenuItemID: "BURGER", Quantity: 3}}

	first, err := repo.PreviewDeduction(context.Background(), requests)
	if err != nil {
		t.Fatalf("PreviewDeduction failed: %v", err)
	}
	second, err := repo.PreviewDeduction(context.Background(), requests)
	if err != nil {
		t.Fatalf("PreviewDeduction failed: %v", err)
	}
	if !first[0].Remaining.Equal(d("2")) || !second[0].Remaining.Equal(d("2")) {
		t.Errorf("Preview should be idempotent, got %s and %s", first[0].Remaining, second[0].Remaining)
	}
	if !stockOf(t, repo, "PATTY").Equal(d("5")) {
		t.Error("Preview must not change stock")
	}
}

func TestIngredientRepository_ConcurrentDeductionsNeverOverdraw(t *testing.T) {
	repo, _ := setupKitchen(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.DeductIngredients(context.Background(), []repositories.DeductionRequest{{MenuItemID: "BURGER", Quantity: 1}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("Expected exactly 5 burgers to succeed, got %d", succeeded)
	}
	if !stockOf(t, repo, "PATTY").IsZero() {
		t.Errorf("Expected patties to be exhausted, got %s", stockOf(t, repo, "PATTY"))
	}
}

func TestIngredientRepository_CancelledContext(t *testing.T) {
	repo, _ := setupKitchen(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByIDs(ctx, []entities.IngredientID{"PATTY"})
	if entities.KindOf(err) != entities.KindPersistence || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected PersistenceError wrapping context.Canceled, got %v", err)
	}
}
