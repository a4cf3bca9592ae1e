package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

type MenuItemRepository struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepository(pool *pgxpool.Pool) *MenuItemRepository {
	return &MenuItemRepository{pool: pool}
}

var _ repositories.MenuItemRepository = (*MenuItemRepository)(nil)

// Save inserts or replaces a menu item together with its recipe
func (r *MenuItemRepository) Save(ctx context.Context, item *entities.MenuItem) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO menu_items (id, name, price)
			VALUES ($1, $2, $3::text::numeric)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
			string(item.ID()), item.Name(), item.Price().String())
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE menu_item_id = $1`, string(item.ID())); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, ref := range item.RequiredIngredients() {
			batch.Queue(`
				INSERT INTO recipe_ingredients (menu_item_id, position, ingredient_id, quantity, unit)
				VALUES ($1, $2, $3, $4::text::numeric, $5)`,
				string(item.ID()), i, string(ref.IngredientID), ref.Quantity.String(), ref.Unit)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return entities.NewPersistenceError("save menu item "+string(item.ID()), err)
	}
	return nil
}

// FindByID loads a menu item and its recipe in recipe order
func (r *MenuItemRepository) FindByID(ctx context.Context, id entities.MenuItemID) (*entities.MenuItem, error) {
	var name, price string
	err := r.pool.QueryRow(ctx, `SELECT name, price::text FROM menu_items WHERE id = $1`, string(id)).Scan(&name, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.NewNotFoundError("menu item not found: %s", id)
	}
	if err != nil {
		return nil, entities.NewPersistenceError("find menu item", err)
	}

	refs, err := r.recipe(ctx, id)
	if err != nil {
		return nil, err
	}

	parsed, err := parseDecimals([]string{"price"}, price)
	if err != nil {
		return nil, entities.NewPersistenceError("find menu item", err)
	}
	return entities.NewMenuItem(id, name, parsed[0], refs)
}

// FindAll returns every menu item ordered by id
func (r *MenuItemRepository) FindAll(ctx context.Context) ([]*entities.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM menu_items ORDER BY id`)
	if err != nil {
		return nil, entities.NewPersistenceError("list menu items", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, entities.NewPersistenceError("list menu items", err)
	}

	items := make([]*entities.MenuItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.FindByID(ctx, entities.MenuItemID(id))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *MenuItemRepository) recipe(ctx context.Context, id entities.MenuItemID) ([]entities.IngredientReference, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ingredient_id, quantity::text, unit
		FROM   recipe_ingredients
		WHERE  menu_item_id = $1
		ORDER  BY position`, string(id))
	if err != nil {
		return nil, entities.NewPersistenceError("load recipe", err)
	}
	defer rows.Close()

	var refs []entities.IngredientReference
	for rows.Next() {
		var ingredientID, quantity, unit string
		if err := rows.Scan(&ingredientID, &quantity, &unit); err != nil {
			return nil, entities.NewPersistenceError("load recipe", err)
		}
		parsed, err := parseDecimals([]string{"quantity"}, quantity)
		if err != nil {
			return nil, entities.NewPersistenceError("load recipe", err)
		}
		refs = append(refs, entities.IngredientReference{
			IngredientID: entities.IngredientID(ingredientID),
			Quantity:     parsed[0],
			Unit:         unit,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, entities.NewPersistenceError("load recipe", err)
	}
	return refs, nil
}
