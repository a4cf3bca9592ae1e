package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// IngredientRepository provides in-memory ingredient storage.
// One mutex guards every read and write, so batched deductions are serialised.
type IngredientRepository struct {
	mu          sync.Mutex
	ingredients map[entities.IngredientID]*entities.Ingredient
	order       []entities.IngredientID
	menuItems   repositories.MenuItemRepository
	planner     *services.DeductionPlanner
}

// NewIngredientRepository creates a new in-memory ingredient repository.
// menuItems resolves recipes for the batched endpoints.
func NewIngredientRepository(menuItems repositories.MenuItemRepository) *IngredientRepository {
	return &IngredientRepository{
		ingredients: make(map[entities.IngredientID]*entities.Ingredient),
		menuItems:   menuItems,
		planner:     services.NewDeductionPlanner(),
	}
}

// Verify interface compliance
var _ repositories.IngredientRepository = (*IngredientRepository)(nil)

// LoadIngredients loads ingredients into the repository
func (r *IngredientRepository) LoadIngredients(ingredients []*entities.Ingredient) error {
	for _, ingredient := range ingredients {
		if err := r.AddIngredient(ingredient); err != nil {
			return err
		}
	}
	return nil
}

// AddIngredient stores a new ingredient at version 1
func (r *IngredientRepository) AddIngredient(ingredient *entities.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ingredients[ingredient.ID()]; exists {
		return fmt.Errorf("ingredient %s already exists", ingredient.ID())
	}
	r.ingredients[ingredient.ID()] = ingredient.WithVersion(1)
	r.order = append(r.order, ingredient.ID())
	return nil
}

// GetAllIngredients returns all ingredients in load order
func (r *IngredientRepository) GetAllIngredients() []*entities.Ingredient {
	r.mu.Lock()
	defer r.mu.Unlock()

	ingredients := make([]*entities.Ingredient, 0, len(r.order))
	for _, id := range r.order {
		ingredients = append(ingredients, r.ingredients[id])
	}
	return ingredients
}

// FindByID returns an ingredient or a NotFoundError
func (r *IngredientRepository) FindByID(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, entities.NewPersistenceError("find ingredient", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ingredient, exists := r.ingredients[id]
	if !exists {
		return nil, entities.NewNotFoundError("ingredient not found: %s", id)
	}
	return ingredient, nil
}

// FindByIDs returns the ingredients that exist, in request order
func (r *IngredientRepository) FindByIDs(ctx context.Context, ids []entities.IngredientID) ([]*entities.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, entities.NewPersistenceError("find ingredients", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	found := make([]*entities.Ingredient, 0, len(ids))
	for _, id := range ids {
		if ingredient, exists := r.ingredients[id]; exists {
			found = append(found, ingredient)
		}
	}
	return found, nil
}

// SaveAll writes every ingredient or none. An ingredient whose version differs from the
// stored one fails the whole batch with ErrConcurrentUpdate.
func (r *IngredientRepository) SaveAll(ctx context.Context, ingredients []*entities.Ingredient) error {
	if err := ctx.Err(); err != nil {
		return entities.NewPersistenceError("save ingredients", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ingredient := range ingredients {
		stored, exists := r.ingredients[ingredient.ID()]
		if !exists {
			if ingredient.Version() != 0 {
				return entities.NewPersistenceError("save ingredients",
					fmt.Errorf("ingredient %s: %w", ingredient.ID(), entities.ErrConcurrentUpdate))
			}
			continue
		}
		if stored.Version() != ingredient.Version() {
			return entities.NewPersistenceError("save ingredients",
				fmt.Errorf("ingredient %s: %w", ingredient.ID(), entities.ErrConcurrentUpdate))
		}
	}

	for _, ingredient := range ingredients {
		if _, exists := r.ingredients[ingredient.ID()]; !exists {
			r.order = append(r.order, ingredient.ID())
		}
		r.ingredients[ingredient.ID()] = ingredient.WithVersion(ingredient.Version() + 1)
	}
	return nil
}

// CheckAvailability reports, per request, whether stock covers it
func (r *IngredientRepository) CheckAvailability(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.AvailabilityResult, error) {
	recipes, err := r.loadRecipes(ctx, requests)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := r.planner.Plan(requests, recipes, r.ingredients)
	if err != nil {
		return nil, err
	}
	return plan.Availability, nil
}

// DeductIngredients removes the stock for every request, or nothing if any request is short
func (r *IngredientRepository) DeductIngredients(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.DeductionResult, error) {
	recipes, err := r.loadRecipes(ctx, requests)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := r.planner.Plan(requests, recipes, r.ingredients)
	if err != nil {
		return nil, err
	}
	if !plan.Feasible() {
		return nil, plan.ShortageError()
	}

	for _, updated := range plan.Updated {
		r.ingredients[updated.ID()] = updated.WithVersion(updated.Version() + 1)
	}
	return plan.Results, nil
}

// PreviewDeduction computes what DeductIngredients would do without changing stock
func (r *IngredientRepository) PreviewDeduction(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.DeductionResult, error) {
	recipes, err := r.loadRecipes(ctx, requests)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := r.planner.Plan(requests, recipes, r.ingredients)
	if err != nil {
		return nil, err
	}
	if !plan.Feasible() {
		return nil, plan.ShortageError()
	}
	return plan.Results, nil
}

func (r *IngredientRepository) loadRecipes(ctx context.Context, requests []repositories.DeductionRequest) (map[entities.MenuItemID]*entities.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, entities.NewPersistenceError("load recipes", err)
	}

	recipes := make(map[entities.MenuItemID]*entities.MenuItem, len(requests))
	for _, request := range requests {
		if _, loaded := recipes[request.MenuItemID]; loaded {
			continue
		}
		recipe, err := r.menuItems.FindByID(ctx, request.MenuItemID)
		if err != nil {
			return nil, err
		}
		recipes[request.MenuItemID] = recipe
	}
	return recipes, nil
}
