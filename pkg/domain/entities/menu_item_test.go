package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewMenuItem_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		id          MenuItemID
		itemName    string
		price       string
		expectError string
	}{
		{"empty id", "", "Burger", "5", "menu item id cannot be empty"},
		{"empty name", "BURGER", "", "5", "menu item name cannot be empty"},
		{"negative price", "BURGER", "Burger", "-1", "menu item price cannot be negative, got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMenuItem(tc.id, tc.itemName, decimal.RequireFromString(tc.price), nil)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestMenuItem_RequiredIngredientsIsDefensiveCopy(t *testing.T) {
	refs := []IngredientReference{
		{IngredientID: "PATTY", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
		{IngredientID: "BUN", Quantity: decimal.NewFromInt(2), Unit: "pcs"},
	}
	item, err := NewMenuItem("BURGER", "Burger", decimal.NewFromInt(8), refs)
	if err != nil {
		t.Fatalf("NewMenuItem failed: %v", err)
	}

	refs[0].IngredientID = "CHANGED"
	got := item.RequiredIngredients()
	if got[0].IngredientID != "PATTY" {
		t.Errorf("Constructor input leaked into menu item: %s", got[0].IngredientID)
	}

	got[1].Quantity = decimal.NewFromInt(99)
	if !item.RequiredIngredients()[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Error("RequiredIngredients returned internal slice")
	}
}

func TestMenuItem_IngredientIDsAreDistinct(t *testing.T) {
	item, err := NewMenuItem("CLUB", "Club Sandwich", decimal.NewFromInt(9), []IngredientReference{
		{IngredientID: "BREAD", Quantity: decimal.NewFromInt(1), Unit: "slice"},
		{IngredientID: "HAM", Quantity: decimal.NewFromInt(1), Unit: "slice"},
		{IngredientID: "BREAD", Quantity: decimal.NewFromInt(2), Unit: "slice"},
	})
	if err != nil {
		t.Fatalf("NewMenuItem failed: %v", err)
	}

	ids := item.IngredientIDs()
	if len(ids) != 2 || ids[0] != "BREAD" || ids[1] != "HAM" {
		t.Errorf("Expected [BREAD HAM], got %v", ids)
	}
}
