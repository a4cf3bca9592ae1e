package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// DeductionPlanner computes the stock effect of a batch of deduction requests without
// touching storage. Repositories use it for their batched endpoints and the consumption
// use case uses it for a single order line.
type DeductionPlanner struct{}

// NewDeductionPlanner creates a new deduction planner
func NewDeductionPlanner() *DeductionPlanner {
	return &DeductionPlanner{}
}

// DeductionPlan is the outcome of planning a batch of requests
type DeductionPlan struct {
	Availability []repositories.AvailabilityResult

	// Results and Updated are only populated when every request is available
	Results []repositories.DeductionResult
	Updated []*entities.Ingredient
}

// Feasible reports whether every request can be covered by current stock
func (p *DeductionPlan) Feasible() bool {
	for _, availability := range p.Availability {
		if !availability.Available {
			return false
		}
	}
	return true
}

// FirstShortage returns the first missing ingredient as an InsufficientStockError, or nil
func (p *DeductionPlan) FirstShortage() *entities.InsufficientStockError {
	for _, availability := range p.Availability {
		for _, missing := range availability.MissingIngredients {
			return &entities.InsufficientStockError{
				IngredientID:   missing.IngredientID,
				IngredientName: missing.IngredientName,
				Available:      missing.Available,
				Required:       missing.Required,
				Unit:           missing.Unit,
			}
		}
	}
	return nil
}

// ShortageError aggregates every unavailable menu item into one InsufficientStockError, or nil
func (p *DeductionPlan) ShortageError() error {
	return ShortageFromAvailability(p.Availability)
}

// ShortageFromAvailability builds one error naming every unavailable menu item, or nil
func ShortageFromAvailability(availability []repositories.AvailabilityResult) error {
	var parts []string
	var first *entities.InsufficientStockError

	for _, item := range availability {
		if item.Available {
			continue
		}
		name := item.MenuItemName
		if name == "" {
			name = string(item.MenuItemID)
		}

		details := make([]string, 0, len(item.MissingIngredients))
		for _, missing := range item.MissingIngredients {
			ingredientName := missing.IngredientName
			if ingredientName == "" {
				ingredientName = string(missing.IngredientID)
			}
			details = append(details, fmt.Sprintf("%s: required %s %s, available %s %s",
				ingredientName, missing.Required.String(), missing.Unit, missing.Available.String(), missing.Unit))

			if first == nil {
				first = &entities.InsufficientStockError{
					IngredientID:   missing.IngredientID,
					IngredientName: missing.IngredientName,
					Available:      missing.Available,
					Required:       missing.Required,
					Unit:           missing.Unit,
				}
			}
		}

		if len(details) == 0 {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(details, "; ")))
		}
	}

	if len(parts) == 0 {
		return nil
	}
	if first == nil {
		first = &entities.InsufficientStockError{}
	}
	first.Message = "insufficient stock for menu items: " + strings.Join(parts, ", ")
	return first
}

// Plan evaluates requests in order against stock. Each available request reserves its
// requirement, so later requests only see what earlier ones left behind.
func (p *DeductionPlanner) Plan(
	requests []repositories.DeductionRequest,
	recipes map[entities.MenuItemID]*entities.MenuItem,
	stock map[entities.IngredientID]*entities.Ingredient,
) (*DeductionPlan, error) {
	plan := &DeductionPlan{
		Availability: make([]repositories.AvailabilityResult, 0, len(requests)),
	}

	remaining := make(map[entities.IngredientID]decimal.Decimal, len(stock))
	for id, ingredient := range stock {
		remaining[id] = ingredient.CurrentStock()
	}
	consumed := make(map[entities.IngredientID]decimal.Decimal)
	var order []entities.IngredientID

	for i, request := range requests {
		if request.Quantity <= 0 {
			return nil, entities.NewValidationError("item %d: quantity must be positive, got %d", i+1, request.Quantity)
		}
		recipe, exists := recipes[request.MenuItemID]
		if !exists || recipe == nil {
			return nil, entities.NewNotFoundError("menu item not found: %s", request.MenuItemID)
		}

		needOrder, need, err := p.requirements(recipe, request.Quantity, stock)
		if err != nil {
			return nil, err
		}

		availability := repositories.AvailabilityResult{
			MenuItemID:   recipe.ID(),
			MenuItemName: recipe.Name(),
			Available:    true,
		}
		for _, id := range needOrder {
			if need[id].GreaterThan(remaining[id]) {
				availability.Available = false
				availability.MissingIngredients = append(availability.MissingIngredients, repositories.MissingIngredient{
					IngredientID:   id,
					IngredientName: stock[id].Name(),
					Required:       need[id],
					Available:      remaining[id],
					Unit:           stock[id].Unit(),
				})
			}
		}

		if availability.Available {
			for _, id := range needOrder {
				if _, seen := consumed[id]; !seen {
					order = append(order, id)
					consumed[id] = decimal.Zero
				}
				remaining[id] = remaining[id].Sub(need[id])
				consumed[id] = consumed[id].Add(need[id])
			}
		}
		plan.Availability = append(plan.Availability, availability)
	}

	if !plan.Feasible() {
		return plan, nil
	}

	for _, id := range order {
		after, err := stock[id].Consume(consumed[id])
		if err != nil {
			return nil, err
		}
		plan.Updated = append(plan.Updated, after)
		plan.Results = append(plan.Results, repositories.DeductionResult{
			IngredientID:   id,
			IngredientName: after.Name(),
			Consumed:       consumed[id],
			Remaining:      after.CurrentStock(),
			Unit:           after.Unit(),
			MinStock:       after.MinStock(),
			ReorderPoint:   after.ReorderPoint(),
		})
	}

	return plan, nil
}

// requirements sums a recipe's references per ingredient for quantity portions
func (p *DeductionPlanner) requirements(
	recipe *entities.MenuItem,
	quantity int,
	stock map[entities.IngredientID]*entities.Ingredient,
) ([]entities.IngredientID, map[entities.IngredientID]decimal.Decimal, error) {
	portions := decimal.NewFromInt(int64(quantity))
	need := make(map[entities.IngredientID]decimal.Decimal)
	var order []entities.IngredientID

	for _, ref := range recipe.RequiredIngredients() {
		ingredient, exists := stock[ref.IngredientID]
		if !exists || ingredient == nil {
			return nil, nil, entities.NewNotFoundError("ingredient %s required by %s not found", ref.IngredientID, recipe.ID())
		}
		if ref.Quantity.IsNegative() {
			return nil, nil, entities.NewValidationError("recipe %s lists negative quantity %s for ingredient %s",
				recipe.ID(), ref.Quantity.String(), ref.IngredientID)
		}
		if ref.Unit != "" && !strings.EqualFold(ref.Unit, ingredient.Unit()) {
			return nil, nil, entities.NewValidationError("recipe %s uses unit %s for ingredient %s stocked in %s",
				recipe.ID(), ref.Unit, ref.IngredientID, ingredient.Unit())
		}

		if _, seen := need[ref.IngredientID]; !seen {
			order = append(order, ref.IngredientID)
			need[ref.IngredientID] = decimal.Zero
		}
		need[ref.IngredientID] = need[ref.IngredientID].Add(ref.Quantity.Mul(portions))
	}

	return order, need, nil
}

// CollectIngredientIDs returns the distinct ingredient ids referenced by recipes
func CollectIngredientIDs(recipes map[entities.MenuItemID]*entities.MenuItem, requests []repositories.DeductionRequest) []entities.IngredientID {
	seen := make(map[entities.IngredientID]bool)
	var ids []entities.IngredientID
	for _, request := range requests {
		recipe, exists := recipes[request.MenuItemID]
		if !exists {
			continue
		}
		for _, id := range recipe.IngredientIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
