package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

const ingredientColumns = `id, name, stock::text, unit, min_stock::text, reorder_point::text, cost_per_unit::text, version`

// IngredientRepository keeps stock in the ingredients table. SaveAll is optimistic
// (version compare-and-swap); the batched endpoints lock the rows they plan over.
type IngredientRepository struct {
	pool      *pgxpool.Pool
	menuItems repositories.MenuItemRepository
	planner   *services.DeductionPlanner
}

func NewIngredientRepository(pool *pgxpool.Pool, menuItems repositories.MenuItemRepository) *IngredientRepository {
	return &IngredientRepository{
		pool:      pool,
		menuItems: menuItems,
		planner:   services.NewDeductionPlanner(),
	}
}

var _ repositories.IngredientRepository = (*IngredientRepository)(nil)

// Upsert writes ingredients as given and resets their version. Used for seeding.
func (r *IngredientRepository) Upsert(ctx context.Context, ingredients []*entities.Ingredient) error {
	batch := &pgx.Batch{}
	for _, ingredient := range ingredients {
		batch.Queue(`
			INSERT INTO ingredients (id, name, stock, unit, min_stock, reorder_point, cost_per_unit, version)
			VALUES ($1, $2, $3::text::numeric, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, 1)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, stock = EXCLUDED.stock, unit = EXCLUDED.unit,
				min_stock = EXCLUDED.min_stock, reorder_point = EXCLUDED.reorder_point,
				cost_per_unit = EXCLUDED.cost_per_unit, version = 1, updated_at = now()`,
			string(ingredient.ID()),
			ingredient.Name(),
			ingredient.CurrentStock().String(),
			ingredient.Unit(),
			ingredient.MinStock().String(),
			ingredient.ReorderPoint().String(),
			ingredient.CostPerUnit().String(),
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return entities.NewPersistenceError("upsert ingredients", err)
	}
	return nil
}

func (r *IngredientRepository) FindByID(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, string(id))
	ingredient, err := scanIngredient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.NewNotFoundError("ingredient not found: %s", id)
	}
	if err != nil {
		return nil, entities.NewPersistenceError("find ingredient", err)
	}
	return ingredient, nil
}

// FindByIDs returns the ingredients in the order of ids, omitting missing ones
func (r *IngredientRepository) FindByIDs(ctx context.Context, ids []entities.IngredientID) ([]*entities.Ingredient, error) {
	found, err := selectIngredients(ctx, r.pool, ids, false)
	if err != nil {
		return nil, entities.NewPersistenceError("find ingredients", err)
	}

	ordered := make([]*entities.Ingredient, 0, len(ids))
	for _, id := range ids {
		if ingredient, ok := found[id]; ok {
			ordered = append(ordered, ingredient)
		}
	}
	return ordered, nil
}

// FindAll returns every ingredient ordered by id
func (r *IngredientRepository) FindAll(ctx context.Context) ([]*entities.Ingredient, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ingredientColumns+` FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, entities.NewPersistenceError("list ingredients", err)
	}
	defer rows.Close()

	var all []*entities.Ingredient
	for rows.Next() {
		ingredient, err := scanIngredient(rows)
		if err != nil {
			return nil, entities.NewPersistenceError("list ingredients", err)
		}
		all = append(all, ingredient)
	}
	if err := rows.Err(); err != nil {
		return nil, entities.NewPersistenceError("list ingredients", err)
	}
	return all, nil
}

// SaveAll writes every ingredient in one transaction. A row whose version moved on since
// it was read rolls the whole batch back with ErrConcurrentUpdate.
func (r *IngredientRepository) SaveAll(ctx context.Context, ingredients []*entities.Ingredient) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, ingredient := range ingredients {
			if err := compareAndSwap(ctx, tx, ingredient); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return entities.NewPersistenceError("save ingredients", err)
	}
	return nil
}

func (r *IngredientRepository) CheckAvailability(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.AvailabilityResult, error) {
	recipes, err := r.loadRecipes(ctx, requests)
	if err != nil {
		return nil, err
	}

	stock, err := selectIngredients(ctx, r.pool, services.CollectIngredientIDs(recipes, requests), false)
	if err != nil {
		return nil, entities.NewPersistenceError("check availability", err)
	}

	plan, err := r.planner.Plan(requests, recipes, stock)
	if err != nil {
		return nil, err
	}
	return plan.Availability, nil
}

// DeductIngredients locks the affected rows, plans over them and writes the new stock.
// Nothing is written unless every request is covered.
func (r *IngredientRepository) DeductIngredients(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.DeductionResult, error) {
	return r.planLocked(ctx, requests, true)
}

func (r *IngredientRepository) PreviewDeduction(ctx context.Context, requests []repositories.DeductionRequest) ([]repositories.DeductionResult, error) {
	return r.planLocked(ctx, requests, false)
}

func (r *IngredientRepository) planLocked(ctx context.Context, requests []repositories.DeductionRequest, commit bool) ([]repositories.DeductionResult, error) {
	recipes, err := r.loadRecipes(ctx, requests)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, entities.NewPersistenceError("deduct ingredients", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stock, err := selectIngredients(ctx, tx, services.CollectIngredientIDs(recipes, requests), commit)
	if err != nil {
		return nil, entities.NewPersistenceError("deduct ingredients", err)
	}

	plan, err := r.planner.Plan(requests, recipes, stock)
	if err != nil {
		return nil, err
	}
	if !plan.Feasible() {
		return nil, plan.ShortageError()
	}
	if !commit {
		return plan.Results, nil
	}

	for _, updated := range plan.Updated {
		if err := compareAndSwap(ctx, tx, updated); err != nil {
			return nil, entities.NewPersistenceError("deduct ingredients", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, entities.NewPersistenceError("deduct ingredients", err)
	}
	return plan.Results, nil
}

func (r *IngredientRepository) loadRecipes(ctx context.Context, requests []repositories.DeductionRequest) (map[entities.MenuItemID]*entities.MenuItem, error) {
	recipes := make(map[entities.MenuItemID]*entities.MenuItem, len(requests))
	for _, request := range requests {
		if _, loaded := recipes[request.MenuItemID]; loaded {
			continue
		}
		recipe, err := r.menuItems.FindByID(ctx, request.MenuItemID)
		if err != nil {
			return nil, entities.AsPersistenceError("load recipes", err)
		}
		recipes[request.MenuItemID] = recipe
	}
	return recipes, nil
}

// selectIngredients reads the given rows; with lock set they are locked in id order so
// concurrent deductions cannot deadlock
func selectIngredients(ctx context.Context, q querier, ids []entities.IngredientID, lock bool) (map[entities.IngredientID]*entities.Ingredient, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}

	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = ANY($1) ORDER BY id`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[entities.IngredientID]*entities.Ingredient, len(ids))
	for rows.Next() {
		ingredient, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		found[ingredient.ID()] = ingredient
	}
	return found, rows.Err()
}

// compareAndSwap inserts a version-0 ingredient or updates a stored one whose version still matches
func compareAndSwap(ctx context.Context, q querier, ingredient *entities.Ingredient) error {
	if ingredient.Version() == 0 {
		tag, err := q.Exec(ctx, `
			INSERT INTO ingredients (id, name, stock, unit, min_stock, reorder_point, cost_per_unit, version)
			VALUES ($1, $2, $3::text::numeric, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, 1)
			ON CONFLICT (id) DO NOTHING`,
			string(ingredient.ID()),
			ingredient.Name(),
			ingredient.CurrentStock().String(),
			ingredient.Unit(),
			ingredient.MinStock().String(),
			ingredient.ReorderPoint().String(),
			ingredient.CostPerUnit().String(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("ingredient %s: %w", ingredient.ID(), entities.ErrConcurrentUpdate)
		}
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE ingredients
		SET    stock = $2::text::numeric, version = version + 1, updated_at = now()
		WHERE  id = $1 AND version = $3`,
		string(ingredient.ID()), ingredient.CurrentStock().String(), int64(ingredient.Version()))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ingredient %s: %w", ingredient.ID(), entities.ErrConcurrentUpdate)
	}
	return nil
}

func scanIngredient(row pgx.Row) (*entities.Ingredient, error) {
	var (
		id, name, unit                          string
		stock, minStock, reorderPoint, costUnit string
		version                                 int64
	)
	if err := row.Scan(&id, &name, &stock, &unit, &minStock, &reorderPoint, &costUnit, &version); err != nil {
		return nil, err
	}

	values, err := parseDecimals(
		[]string{"stock", "min_stock", "reorder_point", "cost_per_unit"},
		stock, minStock, reorderPoint, costUnit,
	)
	if err != nil {
		return nil, err
	}
	return entities.RestoreIngredient(
		entities.IngredientID(id), name, values[0], unit, values[1], values[2], values[3], uint64(version),
	)
}
