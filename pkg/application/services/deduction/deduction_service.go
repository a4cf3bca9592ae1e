package deduction

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// IngredientDeductionService applies a whole order to stock through the repository's
// batched endpoints
type IngredientDeductionService struct {
	ingredients repositories.IngredientRepository
	tracer      trace.Tracer
}

// NewIngredientDeductionService creates a new deduction service
func NewIngredientDeductionService(ingredients repositories.IngredientRepository, tracer trace.Tracer) *IngredientDeductionService {
	if tracer == nil {
		tracer = otel.Tracer("fulfillment")
	}
	return &IngredientDeductionService{
		ingredients: ingredients,
		tracer:      tracer,
	}
}

// CheckAvailability fails with one InsufficientStockError naming every unavailable menu item
func (s *IngredientDeductionService) CheckAvailability(ctx context.Context, items []entities.OrderItem) error {
	ctx, span := s.tracer.Start(ctx, "deduction.check_availability")
	defer span.End()

	requests, err := toRequests(items)
	if err != nil {
		return finish(span, err)
	}

	availability, err := s.ingredients.CheckAvailability(ctx, requests)
	if err != nil {
		return finish(span, entities.AsPersistenceError("check availability", err))
	}
	return finish(span, services.ShortageFromAvailability(availability))
}

// DeductIngredients removes the stock for the whole order
func (s *IngredientDeductionService) DeductIngredients(ctx context.Context, items []entities.OrderItem) ([]entities.IngredientImpact, error) {
	ctx, span := s.tracer.Start(ctx, "deduction.deduct")
	defer span.End()

	requests, err := toRequests(items)
	if err != nil {
		return nil, finish(span, err)
	}

	results, err := s.ingredients.DeductIngredients(ctx, requests)
	if err != nil {
		return nil, finish(span, entities.AsPersistenceError("deduct ingredients", err))
	}

	impacts, err := toImpacts(results)
	span.SetAttributes(attribute.Int("deduction.ingredients", len(impacts)))
	return impacts, finish(span, err)
}

// PreviewImpact computes the order's effect on stock without changing it
func (s *IngredientDeductionService) PreviewImpact(ctx context.Context, items []entities.OrderItem) ([]entities.IngredientImpact, error) {
	ctx, span := s.tracer.Start(ctx, "deduction.preview")
	defer span.End()

	requests, err := toRequests(items)
	if err != nil {
		return nil, finish(span, err)
	}

	results, err := s.ingredients.PreviewDeduction(ctx, requests)
	if err != nil {
		return nil, finish(span, entities.AsPersistenceError("preview deduction", err))
	}

	impacts, err := toImpacts(results)
	return impacts, finish(span, err)
}

func toRequests(items []entities.OrderItem) ([]repositories.DeductionRequest, error) {
	if len(items) == 0 {
		return nil, entities.NewValidationError("order must contain at least one item")
	}

	requests := make([]repositories.DeductionRequest, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, entities.NewValidationError("item %s: quantity must be at least 1, got %d", item.MenuItemID, item.Quantity)
		}
		requests = append(requests, repositories.DeductionRequest{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}
	return requests, nil
}

func toImpacts(results []repositories.DeductionResult) ([]entities.IngredientImpact, error) {
	impacts := make([]entities.IngredientImpact, 0, len(results))
	for _, result := range results {
		impact, err := entities.NewConsumptionResult(
			result.IngredientID,
			result.IngredientName,
			result.Consumed,
			result.Remaining,
			result.Unit,
			result.Remaining.LessThanOrEqual(result.MinStock),
			result.Remaining.LessThanOrEqual(result.ReorderPoint),
		)
		if err != nil {
			return nil, err
		}
		impacts = append(impacts, impact)
	}
	return impacts, nil
}

func finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, entities.KindOf(err).String())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
