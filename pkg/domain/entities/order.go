package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentPolicy selects how an order's stock deduction reacts to a failing line
type FulfillmentPolicy int

const (
	// AllOrNothing deducts the whole order or nothing at all
	AllOrNothing FulfillmentPolicy = iota
	// BestEffort deducts line by line and keeps going after a failure
	BestEffort
)

// String method for FulfillmentPolicy enum
func (p FulfillmentPolicy) String() string {
	switch p {
	case AllOrNothing:
		return "all-or-nothing"
	case BestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// ParseFulfillmentPolicy converts a policy name into a FulfillmentPolicy
func ParseFulfillmentPolicy(s string) (FulfillmentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all-or-nothing", "allornothing", "all_or_nothing", "":
		return AllOrNothing, nil
	case "best-effort", "besteffort", "best_effort":
		return BestEffort, nil
	default:
		return AllOrNothing, fmt.Errorf("invalid fulfillment policy: %s (expected all-or-nothing or best-effort)", s)
	}
}

// OrderStatus represents the persisted state of an order
type OrderStatus string

const (
	OrderPending     OrderStatus = "pending"
	OrderFulfilled   OrderStatus = "fulfilled"
	OrderPartial     OrderStatus = "partially_fulfilled"
	// OrderUnfulfilled is a persisted best-effort order none of whose lines could be made
	OrderUnfulfilled OrderStatus = "unfulfilled"
)

// OrderItem is one line of a submitted order
type OrderItem struct {
	MenuItemID          MenuItemID      `json:"menu_item_id"`
	MenuItemName        string          `json:"menu_item_name"`
	Quantity            int             `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// LineTotal returns price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Line returns the consumption input for this item
func (i OrderItem) Line() OrderLine {
	return OrderLine{MenuItemID: i.MenuItemID, Quantity: i.Quantity}
}

// OrderLine is a menu item and the number of portions to produce
type OrderLine struct {
	MenuItemID MenuItemID `json:"menu_item_id"`
	Quantity   int        `json:"quantity"`
}

// Order is the payload handed to the order repository
type Order struct {
	ID                  string          `json:"id"`
	TableNumber         int             `json:"table_number"`
	CustomerName        string          `json:"customer_name"`
	Items               []OrderItem     `json:"items"`
	Total               decimal.Decimal `json:"total"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Status              OrderStatus     `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
}
