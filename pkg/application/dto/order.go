package dto

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// CreateOrderRequest is what a waiter submits for one table
type CreateOrderRequest struct {
	TableNumber         int                  `json:"table_number"`
	CustomerName        string               `json:"customer_name"`
	Items               []entities.OrderItem `json:"items"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
}

// SubmitOrderResult contains the outcome of a successful OrderManager.SubmitOrder call
type SubmitOrderResult struct {
	OrderID          string                      `json:"order_id"`
	Policy           string                      `json:"policy"`
	State            string                      `json:"state"`
	Total            decimal.Decimal             `json:"total"`
	Impacts          []entities.IngredientImpact `json:"impacts"`
	LowStockWarnings []string                    `json:"low_stock_warnings"`

	// Successful is false only for a best-effort order with failed lines
	Successful  bool                       `json:"successful"`
	Status      entities.OrderStatus       `json:"status"`
	FailedItems []entities.FailedOrderItem `json:"-"`
}

// ProcessOrderResult contains the outcome of consuming an order line by line
type ProcessOrderResult struct {
	Successful          bool
	ConsumedIngredients []entities.ConsumptionResult
	FailedItems         []entities.FailedOrderItem
}

// PreviewResult is the non-destructive impact of an order on stock
type PreviewResult struct {
	Total   decimal.Decimal             `json:"total"`
	Impacts []entities.IngredientImpact `json:"impacts"`
}
