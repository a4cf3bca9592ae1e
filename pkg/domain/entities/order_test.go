package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseFulfillmentPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected FulfillmentPolicy
		wantErr  bool
	}{
		{"all-or-nothing", AllOrNothing, false},
		{"", AllOrNothing, false},
		{"Best-Effort", BestEffort, false},
		{"best_effort", BestEffort, false},
		{"sometimes", AllOrNothing, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			policy, err := ParseFulfillmentPolicy(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if policy != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, policy)
			}
		})
	}
}

func TestFulfillmentPolicy_String(t *testing.T) {
	if AllOrNothing.String() != "all-or-nothing" || BestEffort.String() != "best-effort" {
		t.Errorf("Unexpected policy names: %s, %s", AllOrNothing, BestEffort)
	}
	if FulfillmentPolicy(9).String() != "unknown" {
		t.Errorf("Expected unknown for invalid policy")
	}
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := OrderItem{MenuItemID: "BURGER", Quantity: 3, Price: decimal.RequireFromString("4.50")}
	if !item.LineTotal().Equal(decimal.RequireFromString("13.5")) {
		t.Errorf("Expected 13.5, got %s", item.LineTotal())
	}
	line := item.Line()
	if line.MenuItemID != "BURGER" || line.Quantity != 3 {
		t.Errorf("Unexpected line %+v", line)
	}
}
