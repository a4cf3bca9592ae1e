package repositories

import (
	"context"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// MenuItemRepository provides access to menu items and their recipes
type MenuItemRepository interface {
	FindByID(ctx context.Context, id entities.MenuItemID) (*entities.MenuItem, error)
}
