package entities

import (
	"github.com/shopspring/decimal"
)

// ConsumptionResult describes what one stock deduction (real or simulated) did to an ingredient
type ConsumptionResult struct {
	IngredientID     IngredientID    `json:"ingredient_id"`
	IngredientName   string          `json:"ingredient_name,omitempty"`
	ConsumedQuantity decimal.Decimal `json:"consumed_quantity"`
	RemainingStock   decimal.Decimal `json:"remaining_stock"`
	Unit             string          `json:"unit"`
	IsLowStock       bool            `json:"is_low_stock"`
	NeedsReorder     bool            `json:"needs_reorder"`
}

// IngredientImpact is the order-level name for a ConsumptionResult
type IngredientImpact = ConsumptionResult

// NewConsumptionResult creates a validated ConsumptionResult
func NewConsumptionResult(
	id IngredientID,
	name string,
	consumed, remaining decimal.Decimal,
	unit string,
	isLowStock, needsReorder bool,
) (ConsumptionResult, error) {
	if id == "" {
		return ConsumptionResult{}, NewValidationError("consumption result requires an ingredient id")
	}
	if consumed.IsNegative() {
		return ConsumptionResult{}, NewValidationError("consumed quantity for %s cannot be negative, got %s", id, consumed.String())
	}
	if remaining.IsNegative() {
		return ConsumptionResult{}, NewValidationError("remaining stock for %s cannot be negative, got %s", id, remaining.String())
	}

	return ConsumptionResult{
		IngredientID:     id,
		IngredientName:   name,
		ConsumedQuantity: consumed,
		RemainingStock:   remaining,
		Unit:             unit,
		IsLowStock:       isLowStock,
		NeedsReorder:     needsReorder,
	}, nil
}

// ResultFor builds the ConsumptionResult of consuming amount from an ingredient that now holds after
func ResultFor(after *Ingredient, consumed decimal.Decimal) ConsumptionResult {
	return ConsumptionResult{
		IngredientID:     after.ID(),
		IngredientName:   after.Name(),
		ConsumedQuantity: consumed,
		RemainingStock:   after.CurrentStock(),
		Unit:             after.Unit(),
		IsLowStock:       after.IsLowStock(),
		NeedsReorder:     after.NeedsReorder(),
	}
}

// LowStockAlert is the payload forwarded to the notification service
type LowStockAlert struct {
	IngredientID   IngredientID    `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	MinStock       decimal.Decimal `json:"min_stock"`
	ReorderPoint   decimal.Decimal `json:"reorder_point"`
	Unit           string          `json:"unit"`
}

// FailedOrderItem records a line that could not be fulfilled
type FailedOrderItem struct {
	MenuItemID MenuItemID
	Err        error
}
