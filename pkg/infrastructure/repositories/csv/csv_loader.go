package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// Scenario file names inside a scenario directory
const (
	IngredientsFile = "ingredients.csv"
	MenuItemsFile   = "menu_items.csv"
	RecipesFile     = "recipes.csv"
	OrdersFile      = "orders.csv"
)

var (
	ingredientsHeader = []string{"id", "name", "stock", "unit", "min_stock", "reorder_point", "cost_per_unit"}
	menuItemsHeader   = []string{"id", "name", "price"}
	recipesHeader     = []string{"menu_item_id", "ingredient_id", "quantity", "unit"}
	ordersHeader      = []string{"order_ref", "table_number", "customer_name", "menu_item_id", "quantity", "special_instructions"}
)

// ScenarioOrder is one order of a scenario. Item prices come from the menu.
type ScenarioOrder struct {
	Ref          string
	TableNumber  int
	CustomerName string
	Items        []entities.OrderItem
}

// Scenario is a kitchen plus the orders to run against it
type Scenario struct {
	Ingredients []*entities.Ingredient
	MenuItems   []*entities.MenuItem
	Orders      []ScenarioOrder
}

// Loader handles loading kitchen scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario loads every scenario file in dir. orders.csv is optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	ingredients, err := l.LoadIngredients(filepath.Join(dir, IngredientsFile))
	if err != nil {
		return nil, err
	}
	menuItems, err := l.LoadMenuItems(filepath.Join(dir, MenuItemsFile), filepath.Join(dir, RecipesFile))
	if err != nil {
		return nil, err
	}

	scenario := &Scenario{Ingredients: ingredients, MenuItems: menuItems}

	ordersPath := filepath.Join(dir, OrdersFile)
	if _, err := os.Stat(ordersPath); os.IsNotExist(err) {
		return scenario, nil
	}
	scenario.Orders, err = l.LoadOrders(ordersPath, menuItems)
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// LoadIngredients loads ingredients from a CSV file
func (l *Loader) LoadIngredients(filename string) ([]*entities.Ingredient, error) {
	rows, err := readRecords(filename, "ingredients", ingredientsHeader)
	if err != nil {
		return nil, err
	}

	var ingredients []*entities.Ingredient
	for i, record := range rows {
		ingredient, err := parseIngredient(record)
		if err != nil {
			return nil, fmt.Errorf("ingredients CSV row %d: %w", i+2, err)
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, nil
}

// LoadMenuItems loads menu items and attaches their recipe lines in file order
func (l *Loader) LoadMenuItems(menuFile, recipesFile string) ([]*entities.MenuItem, error) {
	menuRows, err := readRecords(menuFile, "menu items", menuItemsHeader)
	if err != nil {
		return nil, err
	}
	recipeRows, err := readRecords(recipesFile, "recipes", recipesHeader)
	if err != nil {
		return nil, err
	}

	recipes := make(map[entities.MenuItemID][]entities.IngredientReference)
	for i, record := range recipeRows {
		quantity, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: invalid quantity: %s", i+2, record[2])
		}
		menuItemID := entities.MenuItemID(strings.TrimSpace(record[0]))
		recipes[menuItemID] = append(recipes[menuItemID], entities.IngredientReference{
			IngredientID: entities.IngredientID(strings.TrimSpace(record[1])),
			Quantity:     quantity,
			Unit:         strings.TrimSpace(record[3]),
		})
	}

	var items []*entities.MenuItem
	known := make(map[entities.MenuItemID]bool)
	for i, record := range menuRows {
		id := entities.MenuItemID(strings.TrimSpace(record[0]))
		price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("menu items CSV row %d: invalid price: %s", i+2, record[2])
		}
		item, err := entities.NewMenuItem(id, strings.TrimSpace(record[1]), price, recipes[id])
		if err != nil {
			return nil, fmt.Errorf("menu items CSV row %d: %w", i+2, err)
		}
		known[id] = true
		items = append(items, item)
	}

	for id := range recipes {
		if !known[id] {
			return nil, fmt.Errorf("recipes CSV references unknown menu item %s", id)
		}
	}
	return items, nil
}

// LoadOrders groups order lines by order_ref, keeping first-seen order
func (l *Loader) LoadOrders(filename string, menuItems []*entities.MenuItem) ([]ScenarioOrder, error) {
	rows, err := readRecords(filename, "orders", ordersHeader)
	if err != nil {
		return nil, err
	}

	menu := make(map[entities.MenuItemID]*entities.MenuItem, len(menuItems))
	for _, item := range menuItems {
		menu[item.ID()] = item
	}

	var orders []ScenarioOrder
	index := make(map[string]int)
	for i, record := range rows {
		ref := strings.TrimSpace(record[0])
		tableNumber, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid table_number: %s", i+2, record[1])
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid quantity: %s", i+2, record[4])
		}

		menuItemID := entities.MenuItemID(strings.TrimSpace(record[3]))
		item := entities.OrderItem{
			MenuItemID:          menuItemID,
			Quantity:            quantity,
			SpecialInstructions: strings.TrimSpace(record[5]),
		}
		// unknown items are kept so fulfillment can report them
		if menuItem, ok := menu[menuItemID]; ok {
			item.MenuItemName = menuItem.Name()
			item.Price = menuItem.Price()
		}

		at, seen := index[ref]
		if !seen {
			index[ref] = len(orders)
			orders = append(orders, ScenarioOrder{
				Ref:          ref,
				TableNumber:  tableNumber,
				CustomerName: strings.TrimSpace(record[2]),
			})
			at = len(orders) - 1
		}
		orders[at].Items = append(orders[at].Items, item)
	}
	return orders, nil
}

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseIngredient(record []string) (*entities.Ingredient, error) {
	names := ingredientsHeader
	values := make(map[string]decimal.Decimal, 4)
	for _, col := range []int{2, 4, 5, 6} {
		value, err := decimal.NewFromString(strings.TrimSpace(record[col]))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", names[col], record[col])
		}
		values[names[col]] = value
	}

	return entities.NewIngredient(
		entities.IngredientID(strings.TrimSpace(record[0])),
		strings.TrimSpace(record[1]),
		values["stock"],
		strings.TrimSpace(record[3]),
		values["min_stock"],
		values["reorder_point"],
		values["cost_per_unit"],
	)
}
