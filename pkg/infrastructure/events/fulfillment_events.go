package events

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

const (
	OrderSubmittedEvent          = "order.submitted"
	OrderFulfilledEvent          = "order.fulfilled"
	OrderPartiallyFulfilledEvent = "order.partially_fulfilled"
	OrderInconsistentEvent       = "order.inventory_inconsistent"

	InventoryDeductedEvent    = "inventory.deducted"
	InventoryReplenishedEvent = "inventory.replenished"
	LowStockDetectedEvent     = "inventory.low_stock"
)

type OrderSubmitted struct {
	OrderID      string          `json:"order_id"`
	TableNumber  int             `json:"table_number"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	Policy       string          `json:"policy"`
}

type OrderFulfilled struct {
	OrderID string                      `json:"order_id"`
	Impacts []entities.IngredientImpact `json:"impacts"`
}

type OrderPartiallyFulfilled struct {
	OrderID     string                `json:"order_id"`
	FailedItems []entities.MenuItemID `json:"failed_items"`
}

type OrderInconsistent struct {
	OrderID string `json:"order_id"`
	Cause   string `json:"cause"`
}

type InventoryDeducted struct {
	Result entities.ConsumptionResult `json:"result"`
}

type InventoryReplenished struct {
	IngredientID entities.IngredientID `json:"ingredient_id"`
	Added        decimal.Decimal       `json:"added"`
	NewStock     decimal.Decimal       `json:"new_stock"`
}

type LowStockDetected struct {
	Alert entities.LowStockAlert `json:"alert"`
}

func NewOrderSubmittedEvent(order *entities.Order, policy entities.FulfillmentPolicy) Event {
	return newEvent(OrderSubmittedEvent, order.ID, OrderSubmitted{
		OrderID:      order.ID,
		TableNumber:  order.TableNumber,
		CustomerName: order.CustomerName,
		Total:        order.Total,
		Policy:       policy.String(),
	})
}

func NewOrderFulfilledEvent(orderID string, impacts []entities.IngredientImpact) Event {
	return newEvent(OrderFulfilledEvent, orderID, OrderFulfilled{OrderID: orderID, Impacts: impacts})
}

func NewOrderPartiallyFulfilledEvent(orderID string, failed []entities.FailedOrderItem) Event {
	ids := make([]entities.MenuItemID, 0, len(failed))
	for _, item := range failed {
		ids = append(ids, item.MenuItemID)
	}
	return newEvent(OrderPartiallyFulfilledEvent, orderID, OrderPartiallyFulfilled{OrderID: orderID, FailedItems: ids})
}

func NewOrderInconsistentEvent(orderID string, cause error) Event {
	return newEvent(OrderInconsistentEvent, orderID, OrderInconsistent{OrderID: orderID, Cause: cause.Error()})
}

func NewInventoryDeductedEvent(result entities.ConsumptionResult) Event {
	return newEvent(InventoryDeductedEvent, string(result.IngredientID), InventoryDeducted{Result: result})
}

func NewInventoryReplenishedEvent(after *entities.Ingredient, added decimal.Decimal) Event {
	return newEvent(InventoryReplenishedEvent, string(after.ID()), InventoryReplenished{
		IngredientID: after.ID(),
		Added:        added,
		NewStock:     after.CurrentStock(),
	})
}

func NewLowStockDetectedEvent(alert entities.LowStockAlert) Event {
	return newEvent(LowStockDetectedEvent, string(alert.IngredientID), LowStockDetected{Alert: alert})
}
