package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// DeductionRequest asks for the stock needed to produce Quantity portions of a menu item
type DeductionRequest struct {
	MenuItemID entities.MenuItemID
	Quantity   int
}

// MissingIngredient describes one ingredient an order line cannot be covered by
type MissingIngredient struct {
	IngredientID   entities.IngredientID
	IngredientName string
	Required       decimal.Decimal
	Available      decimal.Decimal
	Unit           string
}

// AvailabilityResult reports whether one requested menu item can be produced
type AvailabilityResult struct {
	MenuItemID         entities.MenuItemID
	MenuItemName       string
	Available          bool
	MissingIngredients []MissingIngredient
}

// DeductionResult is the per-ingredient outcome of a batched (or previewed) deduction
type DeductionResult struct {
	IngredientID   entities.IngredientID
	IngredientName string
	Consumed       decimal.Decimal
	Remaining      decimal.Decimal
	Unit           string
	MinStock       decimal.Decimal
	ReorderPoint   decimal.Decimal
}

// IngredientRepository provides access to ingredient stock.
//
// SaveAll must be atomic: either every ingredient is written or none is. Implementations
// reject writes whose Version no longer matches storage with an error wrapping
// entities.ErrConcurrentUpdate.
type IngredientRepository interface {
	FindByID(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error)
	// FindByIDs omits ids that do not exist
	FindByIDs(ctx context.Context, ids []entities.IngredientID) ([]*entities.Ingredient, error)
	SaveAll(ctx context.Context, ingredients []*entities.Ingredient) error

	CheckAvailability(ctx context.Context, requests []DeductionRequest) ([]AvailabilityResult, error)
	DeductIngredients(ctx context.Context, requests []DeductionRequest) ([]DeductionResult, error)
	// PreviewDeduction computes DeductIngredients results without touching stored stock
	PreviewDeduction(ctx context.Context, requests []DeductionRequest) ([]DeductionResult, error)
}
