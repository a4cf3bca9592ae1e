// Package cache puts a read-through cache in front of the menu item repository.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

const menuItemOperation = "menu_item"

type cachedReference struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit,omitempty"`
}

type cachedMenuItem struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Price  decimal.Decimal   `json:"price"`
	Recipe []cachedReference `json:"recipe"`
}

// MenuItemRepository serves recipes from the cache and falls back to next on a miss.
// Cache failures are logged and never fail a lookup.
type MenuItemRepository struct {
	next   repositories.MenuItemRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewMenuItemRepository(next repositories.MenuItemRepository, cache Cache, ttl time.Duration, logger *zap.Logger) *MenuItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuItemRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("menu_cache"),
	}
}

var _ repositories.MenuItemRepository = (*MenuItemRepository)(nil)

func (r *MenuItemRepository) FindByID(ctx context.Context, id entities.MenuItemID) (*entities.MenuItem, error) {
	key := r.cache.GenerateKey(menuItemOperation, string(id))

	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("menu cache read failed", zap.String("key", key), zap.Error(err))
	}
	if raw != "" {
		item, err := decodeMenuItem(raw)
		if err == nil {
			return item, nil
		}
		r.logger.Warn("discarding malformed menu cache entry", zap.String("key", key), zap.Error(err))
	}

	item, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := encodeMenuItem(item)
	if err != nil {
		r.logger.Warn("menu item not cacheable", zap.String("menu_item_id", string(id)), zap.Error(err))
		return item, nil
	}
	if err := r.cache.Set(ctx, key, encoded, r.ttl); err != nil {
		r.logger.Warn("menu cache write failed", zap.String("key", key), zap.Error(err))
	}
	return item, nil
}

// Invalidate drops the cached recipe so the next lookup reads through
func (r *MenuItemRepository) Invalidate(ctx context.Context, id entities.MenuItemID) error {
	return r.cache.Delete(ctx, r.cache.GenerateKey(menuItemOperation, string(id)))
}

func encodeMenuItem(item *entities.MenuItem) (string, error) {
	record := cachedMenuItem{
		ID:     string(item.ID()),
		Name:   item.Name(),
		Price:  item.Price(),
		Recipe: make([]cachedReference, 0),
	}
	for _, ref := range item.RequiredIngredients() {
		record.Recipe = append(record.Recipe, cachedReference{
			IngredientID: string(ref.IngredientID),
			Quantity:     ref.Quantity,
			Unit:         ref.Unit,
		})
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMenuItem(raw string) (*entities.MenuItem, error) {
	var record cachedMenuItem
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	refs := make([]entities.IngredientReference, 0, len(record.Recipe))
	for _, ref := range record.Recipe {
		refs = append(refs, entities.IngredientReference{
			IngredientID: entities.IngredientID(ref.IngredientID),
			Quantity:     ref.Quantity,
			Unit:         ref.Unit,
		})
	}
	return entities.NewMenuItem(entities.MenuItemID(record.ID), record.Name, record.Price, refs)
}
