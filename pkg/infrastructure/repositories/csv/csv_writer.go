package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Writer saves scenarios in the layout Loader reads
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteScenario writes the four scenario files into dir, creating it if needed
func (w *Writer) WriteScenario(dir string, scenario *Scenario) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scenario directory %s: %w", dir, err)
	}

	ingredients := [][]string{ingredientsHeader}
	for _, ingredient := range scenario.Ingredients {
		ingredients = append(ingredients, []string{
			string(ingredient.ID()),
			ingredient.Name(),
			ingredient.CurrentStock().String(),
			ingredient.Unit(),
			ingredient.MinStock().String(),
			ingredient.ReorderPoint().String(),
			ingredient.CostPerUnit().String(),
		})
	}

	menuItems := [][]string{menuItemsHeader}
	recipes := [][]string{recipesHeader}
	for _, item := range scenario.MenuItems {
		menuItems = append(menuItems, []string{string(item.ID()), item.Name(), item.Price().StringFixed(2)})
		for _, ref := range item.RequiredIngredients() {
			recipes = append(recipes, []string{string(item.ID()), string(ref.IngredientID), ref.Quantity.String(), ref.Unit})
		}
	}

	orders := [][]string{ordersHeader}
	for _, order := range scenario.Orders {
		for _, item := range order.Items {
			orders = append(orders, []string{
				order.Ref,
				strconv.Itoa(order.TableNumber),
				order.CustomerName,
				string(item.MenuItemID),
				strconv.Itoa(item.Quantity),
				item.SpecialInstructions,
			})
		}
	}

	files := []struct {
		name    string
		records [][]string
	}{
		{IngredientsFile, ingredients},
		{MenuItemsFile, menuItems},
		{RecipesFile, recipes},
		{OrdersFile, orders},
	}
	for _, f := range files {
		if err := writeRecords(filepath.Join(dir, f.name), f.records); err != nil {
			return err
		}
	}
	return nil
}

func writeRecords(filename string, records [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return file.Close()
}
