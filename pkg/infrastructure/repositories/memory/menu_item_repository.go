package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// MenuItemRepository provides in-memory menu item storage
type MenuItemRepository struct {
	mu        sync.RWMutex
	items     []*entities.MenuItem
	itemsByID map[entities.MenuItemID]int
}

// NewMenuItemRepository creates a new in-memory menu item repository
func NewMenuItemRepository(expectedItems int) *MenuItemRepository {
	return &MenuItemRepository{
		items:     make([]*entities.MenuItem, 0, expectedItems),
		itemsByID: make(map[entities.MenuItemID]int, expectedItems),
	}
}

// Verify interface compliance
var _ repositories.MenuItemRepository = (*MenuItemRepository)(nil)

// LoadMenuItems loads menu items into the repository
func (r *MenuItemRepository) LoadMenuItems(items []*entities.MenuItem) error {
	for _, item := range items {
		if err := r.AddMenuItem(item); err != nil {
			return err
		}
	}
	return nil
}

// AddMenuItem adds a menu item; ids must be unique
func (r *MenuItemRepository) AddMenuItem(item *entities.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.itemsByID[item.ID()]; exists {
		return fmt.Errorf("menu item %s already exists", item.ID())
	}
	r.itemsByID[item.ID()] = len(r.items)
	r.items = append(r.items, item)
	return nil
}

// FindByID returns a menu item or a NotFoundError
func (r *MenuItemRepository) FindByID(ctx context.Context, id entities.MenuItemID) (*entities.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, entities.NewPersistenceError("find menu item", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.itemsByID[id]
	if !exists {
		return nil, entities.NewNotFoundError("menu item not found: %s", id)
	}
	return r.items[index], nil
}

// GetAllMenuItems returns all menu items in load order
func (r *MenuItemRepository) GetAllMenuItems() []*entities.MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*entities.MenuItem, len(r.items))
	copy(items, r.items)
	return items
}
