package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fulfillment/pkg/application/dto"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

func TestConfig_Validate(t *testing.T) {
	for _, format := range []string{FormatText, FormatJSON} {
		if err := (Config{Format: format}).Validate(); err != nil {
			t.Errorf("Expected %s to be accepted, got %v", format, err)
		}
	}
	err := Config{Format: "csv"}.Validate()
	if err == nil || err.Error() != "unsupported output format: csv" {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}

func TestNewOrderOutcome(t *testing.T) {
	rejected := NewOrderOutcome("T2", "Grace", nil, &entities.InsufficientStockError{IngredientID: "PATTY", Message: "Burger: insufficient stock"})
	if rejected.ErrorKind != "InsufficientStockError" || rejected.Error == "" {
		t.Errorf("Unexpected rejected outcome: %+v", rejected)
	}

	partial := NewOrderOutcome("T3", "Linus", &dto.SubmitOrderResult{
		OrderID: "ORD-3",
		FailedItems: []entities.FailedOrderItem{
			{MenuItemID: "SALAD", Err: errors.New("out of lettuce")},
		},
	}, nil)
	if partial.Error != "" || len(partial.FailedItems) != 1 {
		t.Fatalf("Unexpected partial outcome: %+v", partial)
	}
	if partial.FailedItems[0].MenuItemID != "SALAD" || partial.FailedItems[0].Error != "out of lettuce" {
		t.Errorf("Unexpected failed line: %+v", partial.FailedItems[0])
	}
}

func sampleReport() *RunReport {
	return &RunReport{
		Scenario: "diner",
		Policy:   "best-effort",
		Orders: []OrderOutcome{
			{Ref: "T1", CustomerName: "Ada", Result: &dto.SubmitOrderResult{
				OrderID:          "ORD-1",
				Total:            decimal.RequireFromString("23.5"),
				Successful:       true,
				LowStockWarnings: []string{"Beef Patty is running low: 2 pcs remaining"},
			}},
			{Ref: "T2", CustomerName: "Grace", Result: &dto.SubmitOrderResult{OrderID: "ORD-2", Total: decimal.NewFromInt(29)},
				FailedItems: []FailedLine{{MenuItemID: "BURGER", Error: "insufficient stock"}}},
			{Ref: "T3", CustomerName: "Linus", Error: "order must contain at least one item", ErrorKind: "ValidationError"},
		},
		Reorder: []entities.LowStockAlert{{
			IngredientID:   "PATTY",
			IngredientName: "Beef Patty",
			CurrentStock:   decimal.NewFromInt(2),
			MinStock:       decimal.NewFromInt(1),
			ReorderPoint:   decimal.NewFromInt(2),
			Unit:           "pcs",
		}},
	}
}

func TestRunReport_Counts(t *testing.T) {
	fulfilled, partial, rejected := sampleReport().Counts()
	if fulfilled != 1 || partial != 1 || rejected != 1 {
		t.Errorf("Expected 1/1/1, got %d/%d/%d", fulfilled, partial, rejected)
	}
}

func TestRunReport_CountsUnfulfilledAsRejected(t *testing.T) {
	report := &RunReport{Orders: []OrderOutcome{
		{Ref: "T1", Result: &dto.SubmitOrderResult{OrderID: "ORD-1", Status: entities.OrderUnfulfilled}},
		{Ref: "T2", Result: &dto.SubmitOrderResult{OrderID: "ORD-2", Status: entities.OrderPartial}},
	}}
	fulfilled, partial, rejected := report.Counts()
	if fulfilled != 0 || partial != 1 || rejected != 1 {
		t.Errorf("Expected 0/1/1, got %d/%d/%d", fulfilled, partial, rejected)
	}

	var buf bytes.Buffer
	if err := WriteRunReport(&buf, report, Config{Format: FormatText}); err != nil {
		t.Fatalf("WriteRunReport failed: %v", err)
	}
	if !strings.Contains(buf.String(), "unfulfilled") {
		t.Errorf("Expected unfulfilled status in table\n%s", buf.String())
	}
}

func TestWriteRunReport_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, sampleReport(), Config{Format: FormatText}); err != nil {
		t.Fatalf("WriteRunReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Orders: 3 (fulfilled 1, partial 1, rejected 1)",
		"partially_fulfilled",
		"23.50",
		"❌ BURGER: insufficient stock",
		"❌ order must contain at least one item",
		"⚠️  Beef Patty is running low: 2 pcs remaining",
		"Reorder Report",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestWriteRunReport_JSONSavesCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, sampleReport(), Config{Format: FormatJSON, OutputDir: dir}); err != nil {
		t.Fatalf("WriteRunReport failed: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(dir, "run_results.json"))
	if err != nil {
		t.Fatalf("Expected saved report: %v", err)
	}
	if strings.TrimSpace(buf.String()) != string(saved) {
		t.Error("Expected printed and saved JSON to match")
	}
	if !strings.Contains(string(saved), `"customer_name": "Grace"`) {
		t.Errorf("Unexpected JSON: %s", saved)
	}
}

func TestWriteReconciliation_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReconciliation(&buf, nil, Config{Format: FormatText}); err != nil {
		t.Fatalf("WriteReconciliation failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No orders awaiting reconciliation") {
		t.Errorf("Unexpected output: %s", buf.String())
	}
}
