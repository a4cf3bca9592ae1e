package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/fulfillment/pkg/infrastructure/testing"
)

type fakeCache struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.failSet {
		return errors.New("READONLY")
	}
	c.values[key] = value.(string)
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.failGet {
		return "", errors.New("connection refused")
	}
	return c.values[key], nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *fakeCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("test:%s:%s", operation, key)
}

// countingMenu counts lookups that reach the backing store
type countingMenu struct {
	*memory.MenuItemRepository
	calls int
}

func (m *countingMenu) FindByID(ctx context.Context, id entities.MenuItemID) (*entities.MenuItem, error) {
	m.calls++
	return m.MenuItemRepository.FindByID(ctx, id)
}

func TestMenuItemRepository_ReadThrough(t *testing.T) {
	backing := &countingMenu{MenuItemRepository: testhelpers.BuildBurgerKitchen().MenuItems}
	store := newFakeCache()
	repo := NewMenuItemRepository(backing, store, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	first, err := repo.FindByID(ctx, "BURGER")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	second, err := repo.FindByID(ctx, "BURGER")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	if backing.calls != 1 {
		t.Errorf("Expected one backing lookup, got %d", backing.calls)
	}
	if store.ttls["test:menu_item:BURGER"] != 5*time.Minute {
		t.Errorf("Expected entry cached with 5m ttl, got %v", store.ttls)
	}

	if second.Name() != first.Name() || !second.Price().Equal(first.Price()) {
		t.Errorf("Cached item differs: %s/%s vs %s/%s", second.Name(), second.Price(), first.Name(), first.Price())
	}
	refs := second.RequiredIngredients()
	if len(refs) != 2 || refs[1].IngredientID != "BUN" || !refs[1].Quantity.Equal(first.RequiredIngredients()[1].Quantity) || refs[1].Unit != "pcs" {
		t.Errorf("Cached recipe differs: %+v", refs)
	}

	if err := repo.Invalidate(ctx, "BURGER"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, "BURGER"); err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if backing.calls != 2 {
		t.Errorf("Expected a second backing lookup after invalidation, got %d", backing.calls)
	}
}

func TestMenuItemRepository_CacheFailuresFallThrough(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *fakeCache)
	}{
		{"read error", func(c *fakeCache) { c.failGet = true }},
		{"write error", func(c *fakeCache) { c.failSet = true }},
		{"malformed entry", func(c *fakeCache) { c.values["test:menu_item:FRIES"] = "{not json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCache()
			tt.setup(store)
			repo := NewMenuItemRepository(testhelpers.BuildBurgerKitchen().MenuItems, store, time.Minute, zaptest.NewLogger(t))

			item, err := repo.FindByID(context.Background(), "FRIES")
			if err != nil {
				t.Fatalf("Expected lookup to succeed, got %v", err)
			}
			if item.Name() != "Fries" {
				t.Errorf("Expected Fries, got %s", item.Name())
			}
		})
	}
}

func TestMenuItemRepository_MissIsNotCached(t *testing.T) {
	store := newFakeCache()
	repo := NewMenuItemRepository(testhelpers.BuildBurgerKitchen().MenuItems, store, time.Minute, nil)

	_, err := repo.FindByID(context.Background(), "PIZZA")
	if entities.KindOf(err) != entities.KindNotFound {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if len(store.values) != 0 {
		t.Errorf("Expected nothing cached, got %v", store.values)
	}
}
