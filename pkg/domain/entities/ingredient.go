package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// IngredientID represents a unique ingredient identifier
type IngredientID string

// NewIngredientID creates a validated IngredientID
func NewIngredientID(value string) (IngredientID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", NewValidationError("ingredient id cannot be empty")
	}
	return IngredientID(trimmed), nil
}

// String returns the raw identifier
func (id IngredientID) String() string {
	return string(id)
}

// StockQuantity is an immutable non-negative amount with a unit of measure
type StockQuantity struct {
	value decimal.Decimal
	unit  string
}

// NewStockQuantity creates a validated StockQuantity
func NewStockQuantity(value decimal.Decimal, unit string) (StockQuantity, error) {
	if value.IsNegative() {
		return StockQuantity{}, NewValidationError("stock quantity cannot be negative, got %s", value.String())
	}
	if strings.TrimSpace(unit) == "" {
		return StockQuantity{}, NewValidationError("stock unit cannot be empty")
	}
	return StockQuantity{value: value, unit: unit}, nil
}

// Value returns the numeric amount
func (q StockQuantity) Value() decimal.Decimal {
	return q.value
}

// Unit returns the unit of measure
func (q StockQuantity) Unit() string {
	return q.unit
}

// Subtract returns a new quantity reduced by amount
func (q StockQuantity) Subtract(amount decimal.Decimal) (StockQuantity, error) {
	if amount.IsNegative() {
		return StockQuantity{}, NewValidationError("cannot subtract a negative quantity, got %s", amount.String())
	}
	if amount.GreaterThan(q.value) {
		return StockQuantity{}, &InsufficientStockError{
			Available: q.value,
			Required:  amount,
			Unit:      q.unit,
		}
	}
	return StockQuantity{value: q.value.Sub(amount), unit: q.unit}, nil
}

// Add returns a new quantity increased by amount
func (q StockQuantity) Add(amount decimal.Decimal) (StockQuantity, error) {
	if amount.IsNegative() {
		return StockQuantity{}, NewValidationError("cannot add a negative quantity, got %s", amount.String())
	}
	return StockQuantity{value: q.value.Add(amount), unit: q.unit}, nil
}

// Ingredient is the aggregate root for a stocked raw ingredient.
// Thresholds are fixed at creation; stock changes only by producing a new instance.
type Ingredient struct {
	id           IngredientID
	name         string
	stock        StockQuantity
	minStock     decimal.Decimal
	reorderPoint decimal.Decimal
	costPerUnit  decimal.Decimal
	version      uint64
}

// NewIngredient creates a validated Ingredient
func NewIngredient(
	id IngredientID,
	name string,
	currentStock decimal.Decimal,
	unit string,
	minStock, reorderPoint, costPerUnit decimal.Decimal,
) (*Ingredient, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, NewValidationError("ingredient id cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("ingredient name cannot be empty")
	}
	if minStock.IsNegative() {
		return nil, NewValidationError("min stock cannot be negative, got %s", minStock.String())
	}
	if reorderPoint.LessThan(minStock) {
		return nil, NewValidationError("reorder point %s cannot be below min stock %s",
			reorderPoint.String(), minStock.String())
	}
	if !costPerUnit.IsPositive() {
		return nil, NewValidationError("cost per unit must be positive, got %s", costPerUnit.String())
	}

	stock, err := NewStockQuantity(currentStock, unit)
	if err != nil {
		return nil, err
	}

	return &Ingredient{
		id:           id,
		name:         name,
		stock:        stock,
		minStock:     minStock,
		reorderPoint: reorderPoint,
		costPerUnit:  costPerUnit,
	}, nil
}

// RestoreIngredient rebuilds a persisted Ingredient together with its storage version
func RestoreIngredient(
	id IngredientID,
	name string,
	currentStock decimal.Decimal,
	unit string,
	minStock, reorderPoint, costPerUnit decimal.Decimal,
	version uint64,
) (*Ingredient, error) {
	ingredient, err := NewIngredient(id, name, currentStock, unit, minStock, reorderPoint, costPerUnit)
	if err != nil {
		return nil, err
	}
	ingredient.version = version
	return ingredient, nil
}

func (i *Ingredient) ID() IngredientID { return i.id }
func (i *Ingredient) Name() string { return i.name }
func (i *Ingredient) Stock() StockQuantity { return i.stock }
func (i *Ingredient) CurrentStock() decimal.Decimal { return i.stock.Value() }
func (i *Ingredient) Unit() string { return i.stock.Unit() }
func (i *Ingredient) MinStock() decimal.Decimal { return i.minStock }
func (i *Ingredient) ReorderPoint() decimal.Decimal { return i.reorderPoint }
func (i *Ingredient) CostPerUnit() decimal.Decimal { return i.costPerUnit }

// Version is the optimistic concurrency token assigned by the repository
func (i *Ingredient) Version() uint64 { return i.version }

// IsLowStock reports stock at or below the minimum
func (i *Ingredient) IsLowStock() bool {
	return i.stock.Value().LessThanOrEqual(i.minStock)
}

// NeedsReorder reports stock at or below the reorder point
func (i *Ingredient) NeedsReorder() bool {
	return i.stock.Value().LessThanOrEqual(i.reorderPoint)
}

// Consume returns a new Ingredient with quantity removed from stock
func (i *Ingredient) Consume(quantity decimal.Decimal) (*Ingredient, error) {
	stock, err := i.stock.Subtract(quantity)
	if err != nil {
		if shortage, ok := err.(*InsufficientStockError); ok {
			shortage.IngredientID = i.id
			shortage.IngredientName = i.name
			return nil, shortage
		}
		return nil, err
	}
	return i.withStock(stock), nil
}

// Replenish returns a new Ingredient with quantity added to stock
func (i *Ingredient) Replenish(quantity decimal.Decimal) (*Ingredient, error) {
	stock, err := i.stock.Add(quantity)
	if err != nil {
		return nil, err
	}
	return i.withStock(stock), nil
}

// WithVersion returns a copy carrying the given storage version. Only repositories call it.
func (i *Ingredient) WithVersion(version uint64) *Ingredient {
	clone := *i
	clone.version = version
	return &clone
}

func (i *Ingredient) withStock(stock StockQuantity) *Ingredient {
	clone := *i
	clone.stock = stock
	return &clone
}
