package services

import (
	"testing"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

func TestRecipeValidator_ValidCatalogue(t *testing.T) {
	recipes, stock := burgerKitchen(t)
	delete(recipes, "DOUBLE")

	result := NewRecipeValidator().Validate(
		[]*entities.MenuItem{recipes["BURGER"], recipes["SLIDER"]},
		[]*entities.Ingredient{stock["PATTY"], stock["BUN"]},
	)

	if !result.IsValid() {
		t.Errorf("Expected valid recipes, got errors: %v", result.Errors)
	}
}

func TestRecipeValidator_ReportsProblems(t *testing.T) {
	_, stock := burgerKitchen(t)
	menu := []*entities.MenuItem{
		mustMenuItem(t, "WATER", "Tap Water"),
		mustMenuItem(t, "DOUBLE", "Double", ref("PATTY", "1", "pcs"), ref("PATTY", "1", "pcs")),
		mustMenuItem(t, "GHOST", "Ghost", ref("SAFFRON", "1", "g")),
		mustMenuItem(t, "ZERO", "Zero", ref("BUN", "0", "pcs")),
		mustMenuItem(t, "GRAMS", "Grams", ref("BUN", "1", "g")),
	}

	result := NewRecipeValidator().Validate(menu, []*entities.Ingredient{stock["PATTY"], stock["BUN"]})

	if len(result.EmptyRecipes) != 1 || result.EmptyRecipes[0] != "WATER" {
		t.Errorf("Expected WATER empty recipe, got %v", result.EmptyRecipes)
	}
	if len(result.DuplicateReferences) != 1 || result.DuplicateReferences[0].MenuItemID != "DOUBLE" {
		t.Errorf("Expected one duplicate in DOUBLE, got %v", result.DuplicateReferences)
	}
	if len(result.UnknownIngredients) != 1 || result.UnknownIngredients[0].IngredientID != "SAFFRON" {
		t.Errorf("Expected SAFFRON unknown, got %v", result.UnknownIngredients)
	}
	if len(result.NonPositiveQuantities) != 1 || result.NonPositiveQuantities[0].MenuItemID != "ZERO" {
		t.Errorf("Expected ZERO non-positive quantity, got %v", result.NonPositiveQuantities)
	}
	if len(result.UnitMismatches) != 1 || result.UnitMismatches[0].Detail != "recipe uses g, stocked in pcs" {
		t.Errorf("Expected GRAMS unit mismatch, got %v", result.UnitMismatches)
	}

	// duplicates are informational only
	if len(result.Errors) != 4 {
		t.Errorf("Expected 4 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestRecipeValidator_IngredientUniqueness(t *testing.T) {
	_, stock := burgerKitchen(t)
	result := NewRecipeValidator().ValidateIngredientUniqueness(
		[]*entities.Ingredient{stock["PATTY"], stock["BUN"], stock["PATTY"]},
	)

	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %v", result.Errors)
	}
	if result.Errors[0] != "duplicate ingredient ids found: [PATTY]" {
		t.Errorf("Unexpected error message: %s", result.Errors[0])
	}
}
