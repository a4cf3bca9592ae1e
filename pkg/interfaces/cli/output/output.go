package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/fulfillment/pkg/application/dto"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	// OutputDir, when set, receives a copy of JSON output
	OutputDir string
}

// Validate rejects unknown formats before any work is done
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
}

// FailedLine is a best-effort line that was not deducted
type FailedLine struct {
	MenuItemID entities.MenuItemID `json:"menu_item_id"`
	Error      string              `json:"error"`
}

// OrderOutcome is the result of submitting one scenario order
type OrderOutcome struct {
	Ref          string                 `json:"ref"`
	CustomerName string                 `json:"customer_name"`
	Result       *dto.SubmitOrderResult `json:"result,omitempty"`
	FailedItems  []FailedLine           `json:"failed_items,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ErrorKind    string                 `json:"error_kind,omitempty"`
}

// NewOrderOutcome pairs a scenario order with what SubmitOrder returned
func NewOrderOutcome(ref, customer string, result *dto.SubmitOrderResult, err error) OrderOutcome {
	outcome := OrderOutcome{Ref: ref, CustomerName: customer, Result: result}
	if err != nil {
		outcome.Error = err.Error()
		outcome.ErrorKind = entities.KindOf(err).String()
	}
	if result != nil {
		for _, failed := range result.FailedItems {
			outcome.FailedItems = append(outcome.FailedItems, FailedLine{
				MenuItemID: failed.MenuItemID,
				Error:      failed.Err.Error(),
			})
		}
	}
	return outcome
}

// RunReport summarizes a scenario run
type RunReport struct {
	Scenario string                   `json:"scenario"`
	Policy   string                   `json:"policy"`
	Orders   []OrderOutcome           `json:"orders"`
	Reorder  []entities.LowStockAlert `json:"reorder"`
	Elapsed  time.Duration            `json:"elapsed_ns"`
}

// Counts returns how many orders were fulfilled, partially fulfilled and rejected. A persisted
// order with no line fulfilled counts as rejected.
func (r *RunReport) Counts() (fulfilled, partial, rejected int) {
	for _, outcome := range r.Orders {
		switch {
		case outcome.Result == nil, outcome.Result.Status == entities.OrderUnfulfilled:
			rejected++
		case outcome.Result.Successful:
			fulfilled++
		default:
			partial++
		}
	}
	return fulfilled, partial, rejected
}

// WriteRunReport renders a scenario run
func WriteRunReport(w io.Writer, report *RunReport, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(w, report, config, "run_results.json")
	}

	fulfilled, partial, rejected := report.Counts()
	fmt.Fprintf(w, "📊 Fulfillment Results Summary\n")
	fmt.Fprintf(w, "==============================\n\n")
	fmt.Fprintf(w, "Scenario: %s\n", report.Scenario)
	fmt.Fprintf(w, "Policy: %s\n", report.Policy)
	fmt.Fprintf(w, "Orders: %d (fulfilled %d, partial %d, rejected %d)\n", len(report.Orders), fulfilled, partial, rejected)
	fmt.Fprintf(w, "Run Time: %v\n\n", report.Elapsed)

	if len(report.Orders) > 0 {
		fmt.Fprintf(w, "📋 Orders:\n")
		fmt.Fprintf(w, "%-8s %-15s %-20s %-10s %-38s\n", "Ref", "Customer", "Status", "Total", "Order ID")
		fmt.Fprintf(w, "%-8s %-15s %-20s %-10s %-38s\n",
			"--------", "---------------", "--------------------", "----------", "--------------------------------------")
		for _, outcome := range report.Orders {
			status, total, id := "rejected", "-", "-"
			if outcome.Result != nil {
				status = string(outcome.Result.Status)
				if status == "" {
					status = string(entities.OrderFulfilled)
					if !outcome.Result.Successful {
						status = string(entities.OrderPartial)
					}
				}
				total = outcome.Result.Total.StringFixed(2)
				id = outcome.Result.OrderID
			}
			fmt.Fprintf(w, "%-8s %-15s %-20s %-10s %-38s\n", outcome.Ref, outcome.CustomerName, status, total, id)
			if outcome.Error != "" {
				fmt.Fprintf(w, "         ❌ %s\n", outcome.Error)
			}
			for _, failed := range outcome.FailedItems {
				fmt.Fprintf(w, "         ❌ %s: %s\n", failed.MenuItemID, failed.Error)
			}
			if outcome.Result != nil {
				for _, warning := range outcome.Result.LowStockWarnings {
					fmt.Fprintf(w, "         ⚠️  %s\n", warning)
				}
			}
		}
		fmt.Fprintln(w)
	}

	writeAlerts(w, report.Reorder)
	return nil
}

// WritePreview renders the simulated impact of an order
func WritePreview(w io.Writer, preview *dto.PreviewResult, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(w, preview, config, "preview.json")
	}

	fmt.Fprintf(w, "🔍 Order Preview\n")
	fmt.Fprintf(w, "================\n\n")
	fmt.Fprintf(w, "Total: %s\n\n", preview.Total.StringFixed(2))
	writeImpacts(w, preview.Impacts)
	return nil
}

// WriteIngredient renders one ingredient after a stock change
func WriteIngredient(w io.Writer, ingredient *entities.Ingredient, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(w, entities.LowStockAlert{
			IngredientID:   ingredient.ID(),
			IngredientName: ingredient.Name(),
			CurrentStock:   ingredient.CurrentStock(),
			MinStock:       ingredient.MinStock(),
			ReorderPoint:   ingredient.ReorderPoint(),
			Unit:           ingredient.Unit(),
		}, config, "ingredient.json")
	}

	fmt.Fprintf(w, "📦 %s (%s): %s %s in stock (min %s, reorder at %s)\n",
		ingredient.Name(),
		ingredient.ID(),
		ingredient.CurrentStock().String(),
		ingredient.Unit(),
		ingredient.MinStock().String(),
		ingredient.ReorderPoint().String())
	return nil
}

// WriteValidation renders recipe validation findings
func WriteValidation(w io.Writer, result *services.ValidationResult, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(w, result, config, "validation.json")
	}

	if result.IsValid() {
		fmt.Fprintf(w, "✅ All recipes are valid\n")
	} else {
		fmt.Fprintf(w, "❌ Recipe validation failed:\n")
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	for _, issue := range result.DuplicateReferences {
		fmt.Fprintf(w, "⚠️  menu item %s lists ingredient %s more than once\n", issue.MenuItemID, issue.IngredientID)
	}
	return nil
}

// WriteReconciliation renders pending reconciliation entries
func WriteReconciliation(w io.Writer, entries []*entities.ReconciliationEntry, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(w, entries, config, "reconciliation.json")
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "✅ No orders awaiting reconciliation\n")
		return nil
	}

	fmt.Fprintf(w, "🧾 Pending Reconciliation (%d)\n", len(entries))
	fmt.Fprintf(w, "%-38s %-10s %-20s %s\n", "Order ID", "Kind", "Created", "Reason")
	fmt.Fprintf(w, "%-38s %-10s %-20s %s\n",
		"--------------------------------------", "----------", "--------------------", "------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%-38s %-10s %-20s %s\n",
			entry.OrderID,
			entry.Kind,
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Reason)
	}
	return nil
}

func writeImpacts(w io.Writer, impacts []entities.IngredientImpact) {
	if len(impacts) == 0 {
		return
	}
	fmt.Fprintf(w, "🥕 Ingredient Impact:\n")
	fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-6s %-8s\n", "Ingredient", "Name", "Consumed", "Remaining", "Unit", "Flags")
	fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-6s %-8s\n",
		"------------", "--------------------", "------------", "------------", "------", "--------")
	for _, impact := range impacts {
		flags := ""
		if impact.IsLowStock {
			flags = "LOW"
		} else if impact.NeedsReorder {
			flags = "REORDER"
		}
		fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-6s %-8s\n",
			impact.IngredientID,
			impact.IngredientName,
			impact.ConsumedQuantity.String(),
			impact.RemainingStock.String(),
			impact.Unit,
			flags)
	}
	fmt.Fprintln(w)
}

func writeAlerts(w io.Writer, alerts []entities.LowStockAlert) {
	if len(alerts) == 0 {
		return
	}
	fmt.Fprintf(w, "⚠️  Reorder Report:\n")
	fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-12s\n", "Ingredient", "Name", "Stock", "Min", "Reorder At")
	fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-12s\n",
		"------------", "--------------------", "------------", "------------", "------------")
	for _, alert := range alerts {
		fmt.Fprintf(w, "%-12s %-20s %-12s %-12s %-12s\n",
			alert.IngredientID,
			alert.IngredientName,
			alert.CurrentStock.String()+" "+alert.Unit,
			alert.MinStock.String(),
			alert.ReorderPoint.String())
	}
	fmt.Fprintln(w)
}

// writeJSON prints v and, when an output directory is configured, saves it there too
func writeJSON(w io.Writer, v any, config Config, filename string) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintln(w, string(jsonData)); err != nil {
		return err
	}
	if config.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(config.OutputDir, filename)
	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
