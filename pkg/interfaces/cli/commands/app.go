package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/application/services/consumption"
	"github.com/vsinha/fulfillment/pkg/application/services/deduction"
	"github.com/vsinha/fulfillment/pkg/application/services/fulfillment"
	"github.com/vsinha/fulfillment/pkg/application/services/inventory"
	lowstock "github.com/vsinha/fulfillment/pkg/application/services/notification"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	domainservices "github.com/vsinha/fulfillment/pkg/domain/services"
	"github.com/vsinha/fulfillment/pkg/infrastructure/config"
	"github.com/vsinha/fulfillment/pkg/infrastructure/events"
	"github.com/vsinha/fulfillment/pkg/infrastructure/notification"
	"github.com/vsinha/fulfillment/pkg/infrastructure/reconciliation"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/cache"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/postgres"
)

// app holds the services of one command invocation
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	events         *events.InMemoryEventStore
	menuItems      repositories.MenuItemRepository
	ingredients    repositories.IngredientRepository
	orders         repositories.OrderRepository
	reconciliation repositories.ReconciliationRepository

	orderManager *fulfillment.OrderManager
	inventory    *inventory.InventoryService

	// menuCache overrides the redis cache built from cfg
	menuCache cache.Cache

	// closers run in reverse registration order
	closers []func(context.Context) error
}

// store is the persistence side of an app
type store struct {
	menuItems   repositories.MenuItemRepository
	ingredients repositories.IngredientRepository
	orders      repositories.OrderRepository
}

// newApp wires every service from cfg. When scenario is non-nil its kitchen is loaded into
// the store first.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, scenario *csv.Scenario) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx, scenario); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, scenario *csv.Scenario) error {
	cfg, logger := a.cfg, a.logger

	a.events = events.NewInMemoryEventStore(logger)
	a.events.Subscribe(events.LogEvents(logger))
	a.onClose(func(context.Context) error {
		a.events.Wait()
		return nil
	})

	var (
		st  *store
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		st, err = a.openPostgres(ctx, scenario)
	default:
		st, err = a.openMemory(ctx, scenario)
	}
	if err != nil {
		return err
	}
	a.menuItems, a.ingredients, a.orders = st.menuItems, st.ingredients, st.orders

	if a.reconciliation, err = a.openReconciliation(); err != nil {
		return err
	}

	sender := a.buildSender()
	notifier := lowstock.NewLowStockNotifier(a.ingredients, sender, logger)

	tracer := otel.Tracer("fulfillment")
	useCase := consumption.NewConsumptionUseCase(a.menuItems, a.ingredients,
		consumption.WithMaxAttempts(cfg.Consumption.MaxAttempts),
		consumption.WithLogger(logger),
		consumption.WithTracer(tracer),
	)
	a.orderManager = fulfillment.NewOrderManager(
		a.orders,
		deduction.NewIngredientDeductionService(a.ingredients, tracer),
		fulfillment.NewInventoryManager(useCase, notifier, logger),
		notifier,
		fulfillment.WithPolicy(cfg.Fulfillment.Policy),
		fulfillment.WithLogger(logger),
		fulfillment.WithTracer(tracer),
		fulfillment.WithReconciliation(a.reconciliation),
		fulfillment.WithEventStore(a.events),
	)
	a.inventory = inventory.NewInventoryService(a.ingredients, a.events, logger)
	return nil
}

func (a *app) openMemory(ctx context.Context, scenario *csv.Scenario) (*store, error) {
	menuItems := memory.NewMenuItemRepository(0)
	var recipes repositories.MenuItemRepository = menuItems
	cached := a.openCache(menuItems)
	if cached != nil {
		recipes = cached
	}
	ingredients := memory.NewIngredientRepository(recipes)

	if scenario != nil {
		if err := menuItems.LoadMenuItems(scenario.MenuItems); err != nil {
			return nil, fmt.Errorf("load menu items: %w", err)
		}
		a.invalidateMenu(ctx, cached, scenario.MenuItems)
		if err := ingredients.LoadIngredients(scenario.Ingredients); err != nil {
			return nil, fmt.Errorf("load ingredients: %w", err)
		}
	}

	return &store{menuItems: recipes, ingredients: ingredients, orders: memory.NewOrderRepository()}, nil
}

func (a *app) openPostgres(ctx context.Context, scenario *csv.Scenario) (*store, error) {
	pool, err := postgres.Connect(ctx, a.cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error {
		pool.Close()
		return nil
	})
	if err := postgres.Migrate(ctx, pool); err != nil {
		return nil, err
	}

	menuItems := postgres.NewMenuItemRepository(pool)
	var recipes repositories.MenuItemRepository = menuItems
	cached := a.openCache(menuItems)
	if cached != nil {
		recipes = cached
	}
	ingredients := postgres.NewIngredientRepository(pool, recipes)

	if scenario != nil {
		for _, item := range scenario.MenuItems {
			if err := menuItems.Save(ctx, item); err != nil {
				return nil, err
			}
		}
		a.invalidateMenu(ctx, cached, scenario.MenuItems)
		if err := ingredients.Upsert(ctx, scenario.Ingredients); err != nil {
			return nil, err
		}
		a.logger.Info("scenario seeded",
			zap.Int("menu_items", len(scenario.MenuItems)),
			zap.Int("ingredients", len(scenario.Ingredients)))
	}

	return &store{menuItems: recipes, ingredients: ingredients, orders: postgres.NewOrderRepository(pool)}, nil
}

// openCache wraps next in the redis read-through cache when one is configured
func (a *app) openCache(next repositories.MenuItemRepository) *cache.MenuItemRepository {
	c := a.menuCache
	if c == nil {
		if a.cfg.Redis.Addr == "" {
			return nil
		}
		redisCache, client := cache.NewRedisCache(a.cfg.Redis.Addr, a.cfg.OTel.ServiceName)
		a.onClose(func(context.Context) error { return client.Close() })
		c = redisCache
	}
	return cache.NewMenuItemRepository(next, c, a.cfg.Redis.TTL, a.logger)
}

// invalidateMenu drops cached recipes of freshly seeded items. Cached entries outlive a run.
func (a *app) invalidateMenu(ctx context.Context, cached *cache.MenuItemRepository, items []*entities.MenuItem) {
	if cached == nil {
		return
	}
	for _, item := range items {
		if err := cached.Invalidate(ctx, item.ID()); err != nil {
			a.logger.Warn("menu cache invalidation failed",
				zap.String("menu_item_id", string(item.ID())),
				zap.Error(err))
		}
	}
}

func (a *app) openReconciliation() (repositories.ReconciliationRepository, error) {
	path := a.cfg.Reconciliation.Path
	if path == "" {
		return reconciliation.NewMemoryRepository(), nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create reconciliation directory: %w", err)
		}
	}
	repo, err := reconciliation.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return repo.Close() })
	return repo, nil
}

// buildSender fans alerts out to the log, the event store and kafka (when configured)
// behind one bounded async queue
func (a *app) buildSender() domainservices.NotificationService {
	senders := []domainservices.NotificationService{
		notification.NewLogSender(a.logger),
		notification.NewEventStoreSender(a.events),
	}
	if len(a.cfg.Kafka.Brokers) > 0 {
		kafkaSender := notification.NewKafkaSender(
			notification.NewKafkaWriter(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic),
			a.logger,
		)
		a.onClose(func(context.Context) error { return kafkaSender.Close() })
		senders = append(senders, kafkaSender)
	}

	async := notification.NewAsyncSender(
		notification.NewFanoutSender(senders...),
		a.cfg.Notification.QueueSize,
		a.cfg.Notification.Timeout,
		a.logger,
	)
	a.onClose(async.Close)
	return async
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close drains the notification queue and releases connections
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
