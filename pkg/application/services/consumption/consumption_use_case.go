package consumption

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// DefaultMaxAttempts bounds how often a line is re-read and re-written after a concurrent update
const DefaultMaxAttempts = 3

// ConsumptionUseCase deducts the stock needed for one order line
type ConsumptionUseCase struct {
	menuItems   repositories.MenuItemRepository
	ingredients repositories.IngredientRepository
	planner     *services.DeductionPlanner
	maxAttempts int
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option configures a ConsumptionUseCase
type Option func(*ConsumptionUseCase)

// WithMaxAttempts sets the attempt budget for stale-version conflicts; values below 1 mean 1
func WithMaxAttempts(n int) Option {
	return func(u *ConsumptionUseCase) {
		if n < 1 {
			n = 1
		}
		u.maxAttempts = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(u *ConsumptionUseCase) { u.logger = logger.Named("consumption") }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(u *ConsumptionUseCase) { u.tracer = tracer }
}

// NewConsumptionUseCase creates a new consumption use case
func NewConsumptionUseCase(
	menuItems repositories.MenuItemRepository,
	ingredients repositories.IngredientRepository,
	opts ...Option,
) *ConsumptionUseCase {
	u := &ConsumptionUseCase{
		menuItems:   menuItems,
		ingredients: ingredients,
		planner:     services.NewDeductionPlanner(),
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("fulfillment"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute consumes line.Quantity portions of a menu item. Either every ingredient of the
// recipe is written or none is; results follow recipe order.
func (u *ConsumptionUseCase) Execute(ctx context.Context, line entities.OrderLine) ([]entities.ConsumptionResult, error) {
	ctx, span := u.tracer.Start(ctx, "consumption.execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("menu_item.id", string(line.MenuItemID)),
		attribute.Int("order_line.quantity", line.Quantity),
	)

	results, err := u.execute(ctx, line)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, entities.KindOf(err).String())
		return nil, err
	}

	span.SetAttributes(attribute.Int("consumption.ingredients", len(results)))
	span.SetStatus(codes.Ok, "stock consumed")
	return results, nil
}

func (u *ConsumptionUseCase) execute(ctx context.Context, line entities.OrderLine) ([]entities.ConsumptionResult, error) {
	if line.Quantity <= 0 {
		return nil, entities.NewValidationError("quantity must be positive, got %d", line.Quantity)
	}

	menuItem, err := u.menuItems.FindByID(ctx, line.MenuItemID)
	if err != nil {
		return nil, entities.AsPersistenceError("find menu item", err)
	}

	for attempt := 1; ; attempt++ {
		results, err := u.attempt(ctx, menuItem, line.Quantity)
		if err == nil {
			return results, nil
		}
		if !errors.Is(err, entities.ErrConcurrentUpdate) || attempt >= u.maxAttempts {
			return nil, err
		}

		u.logger.Debug("retrying consumption after concurrent update",
			zap.String("menu_item_id", string(menuItem.ID())),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
}

func (u *ConsumptionUseCase) attempt(ctx context.Context, menuItem *entities.MenuItem, quantity int) ([]entities.ConsumptionResult, error) {
	ids := menuItem.IngredientIDs()
	found, err := u.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, entities.AsPersistenceError("find ingredients", err)
	}

	stock := make(map[entities.IngredientID]*entities.Ingredient, len(found))
	for _, ingredient := range found {
		stock[ingredient.ID()] = ingredient
	}
	for _, id := range ids {
		if _, exists := stock[id]; !exists {
			return nil, entities.NewNotFoundError("ingredient not found: %s", id)
		}
	}

	plan, err := u.planner.Plan(
		[]repositories.DeductionRequest{{MenuItemID: menuItem.ID(), Quantity: quantity}},
		map[entities.MenuItemID]*entities.MenuItem{menuItem.ID(): menuItem},
		stock,
	)
	if err != nil {
		return nil, err
	}
	if shortage := plan.FirstShortage(); shortage != nil {
		return nil, shortage
	}

	if err := u.ingredients.SaveAll(ctx, plan.Updated); err != nil {
		return nil, entities.AsPersistenceError("save ingredients", err)
	}

	results := make([]entities.ConsumptionResult, 0, len(plan.Updated))
	for i, updated := range plan.Updated {
		results = append(results, entities.ResultFor(updated, plan.Results[i].Consumed))
	}
	return results, nil
}
