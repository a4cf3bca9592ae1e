package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/application/dto"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
	"github.com/vsinha/fulfillment/pkg/infrastructure/events"
	"github.com/vsinha/fulfillment/pkg/infrastructure/reconciliation"
)

// OrderState is a step of the submission state machine
type OrderState string

const (
	StateValidating           OrderState = "validating"
	StateCheckingAvailability OrderState = "checking_availability"
	StatePersisting           OrderState = "persisting"
	StateDeducting            OrderState = "deducting"
	StateCompleted            OrderState = "completed"
	StateFailed               OrderState = "failed"
	// StateCriticalFailed is only reachable from StateDeducting
	StateCriticalFailed OrderState = "critical_failed"
)

// Deducter is the order-level view of ingredient stock
type Deducter interface {
	CheckAvailability(ctx context.Context, items []entities.OrderItem) error
	DeductIngredients(ctx context.Context, items []entities.OrderItem) ([]entities.IngredientImpact, error)
	PreviewImpact(ctx context.Context, items []entities.OrderItem) ([]entities.IngredientImpact, error)
}

// StatusRecorder is implemented by order stores that track the fulfillment outcome
type StatusRecorder interface {
	UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error
}

// LineProcessor consumes an order line by line
type LineProcessor interface {
	ProcessOrder(ctx context.Context, lines []entities.OrderLine) (*dto.ProcessOrderResult, error)
}

// OrderManager validates, persists and deducts orders under a FulfillmentPolicy
type OrderManager struct {
	orders         repositories.OrderRepository
	deducter       Deducter
	processor      LineProcessor
	notifier       LowStockReporter
	reconciliation repositories.ReconciliationRepository
	eventStore     events.EventStore
	policy         entities.FulfillmentPolicy
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// Option configures an OrderManager
type Option func(*OrderManager)

func WithPolicy(policy entities.FulfillmentPolicy) Option {
	return func(m *OrderManager) { m.policy = policy }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *OrderManager) { m.logger = logger.Named("order_manager") }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *OrderManager) { m.tracer = tracer }
}

// WithReconciliation records critical and partial orders for manual follow-up
func WithReconciliation(repo repositories.ReconciliationRepository) Option {
	return func(m *OrderManager) { m.reconciliation = repo }
}

func WithEventStore(store events.EventStore) Option {
	return func(m *OrderManager) { m.eventStore = store }
}

// NewOrderManager creates a new order manager. processor is only used under BestEffort.
func NewOrderManager(
	orders repositories.OrderRepository,
	deducter Deducter,
	processor LineProcessor,
	notifier LowStockReporter,
	opts ...Option,
) *OrderManager {
	m := &OrderManager{
		orders:    orders,
		deducter:  deducter,
		processor: processor,
		notifier:  notifier,
		policy:    entities.AllOrNothing,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("fulfillment"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the fulfillment policy in effect
func (m *OrderManager) Policy() entities.FulfillmentPolicy {
	return m.policy
}

// ValidateOrder checks the request shape before anything touches storage
func (m *OrderManager) ValidateOrder(req dto.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return entities.NewValidationError("order must contain at least one item")
	}
	if req.TableNumber < 1 {
		return entities.NewValidationError("table number must be at least 1, got %d", req.TableNumber)
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return entities.NewValidationError("customer name cannot be empty")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(string(item.MenuItemID)) == "" {
			return entities.NewValidationError("item %d: menu item id cannot be empty", i+1)
		}
		if item.Quantity < 1 {
			return entities.NewValidationError("item %s: quantity must be at least 1, got %d", item.MenuItemID, item.Quantity)
		}
		if item.Price.IsNegative() {
			return entities.NewValidationError("item %s: price cannot be negative, got %s", item.MenuItemID, item.Price.String())
		}
	}
	return nil
}

// CalculateTotal sums price times quantity over items
func (m *OrderManager) CalculateTotal(items []entities.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// PreviewIngredientImpact reports what the items would do to stock. Nothing is persisted.
func (m *OrderManager) PreviewIngredientImpact(ctx context.Context, items []entities.OrderItem) (*dto.PreviewResult, error) {
	impacts, err := m.deducter.PreviewImpact(ctx, items)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResult{Total: m.CalculateTotal(items), Impacts: impacts}, nil
}

// SubmitOrder runs the order through the state machine for the configured policy.
// A *entities.CriticalInconsistencyError means the order exists but stock was not updated.
func (m *OrderManager) SubmitOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.SubmitOrderResult, error) {
	ctx, span := m.tracer.Start(ctx, "order.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("fulfillment.policy", m.policy.String()),
		attribute.Int("order.items", len(req.Items)),
	)

	state := StateValidating
	fail := func(err error) (*dto.SubmitOrderResult, error) {
		failed := StateFailed
		if entities.KindOf(err) == entities.KindCriticalInconsistency {
			failed = StateCriticalFailed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(failed))
		if failed == StateFailed {
			m.logger.Info("order rejected",
				zap.String("state", string(state)),
				zap.Stringer("kind", entities.KindOf(err)),
				zap.Error(err))
		}
		return nil, err
	}

	if err := m.ValidateOrder(req); err != nil {
		return fail(err)
	}

	order := &entities.Order{
		ID:                  uuid.NewString(),
		TableNumber:         req.TableNumber,
		CustomerName:        strings.TrimSpace(req.CustomerName),
		Items:               append([]entities.OrderItem(nil), req.Items...),
		Total:               m.CalculateTotal(req.Items),
		SpecialInstructions: req.SpecialInstructions,
		Status:              entities.OrderPending,
		CreatedAt:           m.now().UTC(),
	}

	if m.policy == entities.AllOrNothing {
		state = StateCheckingAvailability
		if err := m.deducter.CheckAvailability(ctx, order.Items); err != nil {
			return fail(err)
		}
	}

	state = StatePersisting
	orderID, err := m.orders.SubmitOrder(ctx, order)
	if err != nil {
		return fail(entities.AsPersistenceError("submit order", err))
	}
	order.ID = orderID
	span.SetAttributes(attribute.String("order.id", orderID))
	m.publish(ctx, events.NewOrderSubmittedEvent(order, m.policy))

	state = StateDeducting
	var result *dto.SubmitOrderResult
	if m.policy == entities.BestEffort {
		result, err = m.deductLineByLine(ctx, order)
	} else {
		result, err = m.deductAll(ctx, order)
	}
	if err != nil {
		return fail(err)
	}

	m.recordStatus(ctx, result)

	state = StateCompleted
	result.State = string(state)
	span.SetStatus(codes.Ok, string(state))
	m.logger.Info("order submitted",
		zap.String("order_id", orderID),
		zap.String("policy", m.policy.String()),
		zap.Bool("successful", result.Successful),
		zap.Int("low_stock_warnings", len(result.LowStockWarnings)))
	return result, nil
}

func (m *OrderManager) deductAll(ctx context.Context, order *entities.Order) (*dto.SubmitOrderResult, error) {
	impacts, err := m.deducter.DeductIngredients(ctx, order.Items)
	if err != nil {
		critical := &entities.CriticalInconsistencyError{OrderID: order.ID, Cause: err}
		m.logger.Error("order persisted but inventory update failed",
			zap.Bool("critical", true),
			zap.String("order_id", order.ID),
			zap.String("action", "verify inventory manually"),
			zap.Error(err))
		m.record(ctx, order, entities.ReconciliationCritical, err.Error())
		m.publish(ctx, events.NewOrderInconsistentEvent(order.ID, err))
		return nil, critical
	}

	for _, impact := range impacts {
		m.publish(ctx, events.NewInventoryDeductedEvent(impact))
	}
	m.publish(ctx, events.NewOrderFulfilledEvent(order.ID, impacts))
	m.notifyLowStock(ctx, order.ID, impacts)

	return &dto.SubmitOrderResult{
		OrderID:          order.ID,
		Policy:           m.policy.String(),
		Total:            order.Total,
		Impacts:          impacts,
		LowStockWarnings: LowStockWarnings(impacts),
		Successful:       true,
		Status:           entities.OrderFulfilled,
		FailedItems:      []entities.FailedOrderItem{},
	}, nil
}

// deductLineByLine leaves low-stock notification to the processor, which reports per line
func (m *OrderManager) deductLineByLine(ctx context.Context, order *entities.Order) (*dto.SubmitOrderResult, error) {
	if m.processor == nil {
		return nil, fmt.Errorf("best-effort fulfillment requires a line processor")
	}

	lines := make([]entities.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, item.Line())
	}

	processed, err := m.processor.ProcessOrder(ctx, lines)
	if err != nil {
		critical := &entities.CriticalInconsistencyError{OrderID: order.ID, Cause: err}
		m.logger.Error("order persisted but inventory update failed",
			zap.Bool("critical", true),
			zap.String("order_id", order.ID),
			zap.Error(err))
		m.record(ctx, order, entities.ReconciliationCritical, err.Error())
		m.publish(ctx, events.NewOrderInconsistentEvent(order.ID, err))
		return nil, critical
	}

	for _, consumed := range processed.ConsumedIngredients {
		m.publish(ctx, events.NewInventoryDeductedEvent(consumed))
	}
	status := entities.OrderFulfilled
	if processed.Successful {
		m.publish(ctx, events.NewOrderFulfilledEvent(order.ID, processed.ConsumedIngredients))
	} else {
		status = entities.OrderPartial
		if len(processed.FailedItems) >= len(lines) {
			status = entities.OrderUnfulfilled
		}
		reasons := make([]string, 0, len(processed.FailedItems))
		for _, failed := range processed.FailedItems {
			reasons = append(reasons, fmt.Sprintf("%s: %v", failed.MenuItemID, failed.Err))
		}
		m.logger.Warn("order not fully fulfilled",
			zap.String("order_id", order.ID),
			zap.String("status", string(status)),
			zap.Int("failed_items", len(processed.FailedItems)))
		m.record(ctx, order, entities.ReconciliationPartial, strings.Join(reasons, "; "))
		m.publish(ctx, events.NewOrderPartiallyFulfilledEvent(order.ID, processed.FailedItems))
	}

	return &dto.SubmitOrderResult{
		OrderID:          order.ID,
		Policy:           m.policy.String(),
		Total:            order.Total,
		Impacts:          processed.ConsumedIngredients,
		LowStockWarnings: LowStockWarnings(processed.ConsumedIngredients),
		Successful:       processed.Successful,
		Status:           status,
		FailedItems:      processed.FailedItems,
	}, nil
}

// LowStockWarnings builds one message per impact that reached its reorder point
func LowStockWarnings(impacts []entities.IngredientImpact) []string {
	warnings := make([]string, 0)
	for _, impact := range impacts {
		if !impact.NeedsReorder {
			continue
		}
		name := impact.IngredientName
		if name == "" {
			name = string(impact.IngredientID)
		}
		warnings = append(warnings, fmt.Sprintf("%s is running low: %s %s remaining",
			name, impact.RemainingStock.String(), impact.Unit))
	}
	return warnings
}

func (m *OrderManager) recordStatus(ctx context.Context, result *dto.SubmitOrderResult) {
	recorder, ok := m.orders.(StatusRecorder)
	if !ok {
		return
	}
	status := result.Status
	if err := recorder.UpdateStatus(ctx, result.OrderID, status); err != nil {
		m.logger.Warn("order status not updated",
			zap.String("order_id", result.OrderID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (m *OrderManager) notifyLowStock(ctx context.Context, orderID string, impacts []entities.IngredientImpact) {
	reorder := needingReorder(impacts)
	if len(reorder) == 0 || m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyLowStock(ctx, reorder); err != nil {
		m.logger.Error("low stock notification failed",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

func (m *OrderManager) record(ctx context.Context, order *entities.Order, kind entities.ReconciliationKind, reason string) {
	if m.reconciliation == nil {
		return
	}

	payload, err := json.Marshal(order)
	if err != nil {
		m.logger.Warn("order payload not serialisable", zap.String("order_id", order.ID), zap.Error(err))
	}

	entry := reconciliation.NewEntry(ctx, order.ID, kind, reason, string(payload))

	// the caller's context may be the one that just failed
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.reconciliation.Record(recordCtx, entry); err != nil {
		m.logger.Error("reconciliation entry not recorded",
			zap.Bool("critical", kind == entities.ReconciliationCritical),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func (m *OrderManager) publish(ctx context.Context, event events.Event) {
	if m.eventStore == nil {
		return
	}
	if _, err := m.eventStore.Append(ctx, event); err != nil {
		m.logger.Warn("event not recorded", zap.String("event_type", event.Type), zap.Error(err))
	}
}
