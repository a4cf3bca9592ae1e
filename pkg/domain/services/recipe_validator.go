package services

import (
	"fmt"
	"strings"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// RecipeValidator checks menu recipes against the ingredient catalogue
type RecipeValidator struct{}

// NewRecipeValidator creates a new recipe validator
func NewRecipeValidator() *RecipeValidator {
	return &RecipeValidator{}
}

// ValidationResult contains the results of recipe validation
type ValidationResult struct {
	EmptyRecipes          []entities.MenuItemID
	DuplicateReferences   []RecipeIssue
	UnknownIngredients    []RecipeIssue
	NonPositiveQuantities []RecipeIssue
	UnitMismatches        []RecipeIssue
	Errors                []string
}

// RecipeIssue points at one reference inside one recipe
type RecipeIssue struct {
	MenuItemID   entities.MenuItemID
	IngredientID entities.IngredientID
	Detail       string
}

// IsValid reports whether no problems were found
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validate checks every menu item's recipe. Duplicate references are reported but are not
// errors: consumption sums them.
func (v *RecipeValidator) Validate(menuItems []*entities.MenuItem, ingredients []*entities.Ingredient) *ValidationResult {
	result := &ValidationResult{
		EmptyRecipes:          make([]entities.MenuItemID, 0),
		DuplicateReferences:   make([]RecipeIssue, 0),
		UnknownIngredients:    make([]RecipeIssue, 0),
		NonPositiveQuantities: make([]RecipeIssue, 0),
		UnitMismatches:        make([]RecipeIssue, 0),
		Errors:                make([]string, 0),
	}

	catalogue := make(map[entities.IngredientID]*entities.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		catalogue[ingredient.ID()] = ingredient
	}

	for _, item := range menuItems {
		refs := item.RequiredIngredients()
		if len(refs) == 0 {
			result.EmptyRecipes = append(result.EmptyRecipes, item.ID())
			result.Errors = append(result.Errors, fmt.Sprintf("menu item %s has an empty recipe", item.ID()))
			continue
		}

		seen := make(map[entities.IngredientID]bool)
		for _, ref := range refs {
			if seen[ref.IngredientID] {
				result.DuplicateReferences = append(result.DuplicateReferences, RecipeIssue{
					MenuItemID:   item.ID(),
					IngredientID: ref.IngredientID,
					Detail:       "listed more than once",
				})
			}
			seen[ref.IngredientID] = true

			if !ref.Quantity.IsPositive() {
				issue := RecipeIssue{item.ID(), ref.IngredientID, fmt.Sprintf("quantity %s", ref.Quantity.String())}
				result.NonPositiveQuantities = append(result.NonPositiveQuantities, issue)
				result.Errors = append(result.Errors, fmt.Sprintf("menu item %s: ingredient %s has non-positive quantity %s",
					item.ID(), ref.IngredientID, ref.Quantity.String()))
			}

			ingredient, exists := catalogue[ref.IngredientID]
			if !exists {
				result.UnknownIngredients = append(result.UnknownIngredients, RecipeIssue{item.ID(), ref.IngredientID, "not in catalogue"})
				result.Errors = append(result.Errors, fmt.Sprintf("menu item %s references unknown ingredient %s",
					item.ID(), ref.IngredientID))
				continue
			}

			if ref.Unit != "" && !strings.EqualFold(ref.Unit, ingredient.Unit()) {
				detail := fmt.Sprintf("recipe uses %s, stocked in %s", ref.Unit, ingredient.Unit())
				result.UnitMismatches = append(result.UnitMismatches, RecipeIssue{item.ID(), ref.IngredientID, detail})
				result.Errors = append(result.Errors, fmt.Sprintf("menu item %s: ingredient %s %s",
					item.ID(), ref.IngredientID, detail))
			}
		}
	}

	return result
}

// ValidateIngredientUniqueness validates that ingredient ids are unique in a catalogue
func (v *RecipeValidator) ValidateIngredientUniqueness(ingredients []*entities.Ingredient) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	seen := make(map[entities.IngredientID]bool)
	duplicates := make([]entities.IngredientID, 0)

	for _, ingredient := range ingredients {
		if seen[ingredient.ID()] {
			duplicates = append(duplicates, ingredient.ID())
		} else {
			seen[ingredient.ID()] = true
		}
	}

	if len(duplicates) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate ingredient ids found: %v", duplicates))
	}

	return result
}
