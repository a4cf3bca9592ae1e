package commands

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Ingredients int     // Number of pantry ingredients
	MenuItems   int     // Number of dishes on the menu
	Orders      int     // Number of orders
	Coverage    float64 // Stock as a multiple of what the orders need (e.g., 0.5 = half, 2.0 = double)
	OutputDir   string  // Output directory for generated files
	Seed        int64   // Random seed for reproducible generation
	Verbose     bool    // Verbose output
}

// Validate checks the generator bounds
func (c GenerateConfig) Validate() error {
	if c.Ingredients < 1 {
		return fmt.Errorf("ingredients must be at least 1, got %d", c.Ingredients)
	}
	if c.MenuItems < 1 {
		return fmt.Errorf("menu items must be at least 1, got %d", c.MenuItems)
	}
	if c.Orders < 0 {
		return fmt.Errorf("orders cannot be negative, got %d", c.Orders)
	}
	if c.Coverage <= 0 {
		return fmt.Errorf("coverage must be positive, got %.2f", c.Coverage)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// pantryItem is a template for a generated ingredient
type pantryItem struct {
	name string
	unit string
	// per-portion amount range, in hundredths of the unit
	minPortion, maxPortion int
}

var pantry = []pantryItem{
	{"Beef Patty", "pcs", 100, 200},
	{"Chicken Breast", "pcs", 100, 100},
	{"Brioche Bun", "pcs", 100, 200},
	{"Tortilla", "pcs", 100, 200},
	{"Cheddar", "kg", 2, 5},
	{"Potato", "kg", 15, 30},
	{"Lettuce", "kg", 5, 15},
	{"Tomato", "kg", 5, 10},
	{"Onion", "kg", 2, 5},
	{"Rice", "kg", 10, 20},
	{"Black Beans", "kg", 8, 15},
	{"Olive Oil", "l", 1, 3},
	{"Milk", "l", 10, 25},
	{"Egg", "pcs", 100, 300},
	{"Avocado", "pcs", 50, 100},
	{"Salmon Fillet", "pcs", 100, 100},
	{"Pasta", "kg", 10, 15},
	{"Parmesan", "kg", 1, 3},
	{"Mushroom", "kg", 5, 10},
	{"Bacon", "kg", 3, 6},
}

var (
	dishes       = []string{"Burger", "Wrap", "Bowl", "Salad", "Plate", "Sandwich", "Pasta", "Tacos"}
	instructions = []string{"no onions", "extra sauce", "well done", "dressing on the side", "gluten free"}
)

// GenerateCommand builds random but internally consistent scenarios
type GenerateCommand struct {
	config GenerateConfig
	fake   faker.Faker
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig, out io.Writer) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		config.Seed = seed
	}

	return &GenerateCommand{
		config: config,
		fake:   faker.NewWithSeed(rand.NewSource(seed)),
		out:    out,
	}
}

// Execute generates the scenario and writes it to the output directory
func (cmd *GenerateCommand) Execute() (*csv.Scenario, error) {
	if err := cmd.config.Validate(); err != nil {
		return nil, err
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out,
			"🔧 Generating scenario with %d ingredients, %d menu items, %d orders, %.1fx stock coverage\n",
			cmd.config.Ingredients,
			cmd.config.MenuItems,
			cmd.config.Orders,
			cmd.config.Coverage,
		)
		fmt.Fprintf(cmd.out, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(cmd.out, "🎲 Random seed: %d\n", cmd.config.Seed)
	}

	templates := cmd.pickPantry()
	menuItems, err := cmd.generateMenu(templates)
	if err != nil {
		return nil, fmt.Errorf("failed to generate menu: %w", err)
	}
	orders := cmd.generateOrders(menuItems)
	ingredients, err := cmd.generateIngredients(templates, menuItems, orders)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ingredients: %w", err)
	}

	scenario := &csv.Scenario{Ingredients: ingredients, MenuItems: menuItems, Orders: orders}
	if err := csv.NewWriter().WriteScenario(cmd.config.OutputDir, scenario); err != nil {
		return nil, err
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return scenario, nil
}

// pickPantry chooses distinct pantry templates, numbering repeats once the pantry runs out
func (cmd *GenerateCommand) pickPantry() []pantryItem {
	order := make([]int, len(pantry))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := cmd.fake.IntBetween(0, i)
		order[i], order[j] = order[j], order[i]
	}

	picked := make([]pantryItem, 0, cmd.config.Ingredients)
	for i := 0; i < cmd.config.Ingredients; i++ {
		item := pantry[order[i%len(order)]]
		if round := i / len(order); round > 0 {
			item.name = fmt.Sprintf("%s %d", item.name, round+1)
		}
		picked = append(picked, item)
	}
	return picked
}

func ingredientID(i int) entities.IngredientID {
	return entities.IngredientID(fmt.Sprintf("ING%03d", i+1))
}

// generateMenu gives each dish 1-4 distinct ingredients
func (cmd *GenerateCommand) generateMenu(templates []pantryItem) ([]*entities.MenuItem, error) {
	menuItems := make([]*entities.MenuItem, 0, cmd.config.MenuItems)
	for i := 0; i < cmd.config.MenuItems; i++ {
		count := cmd.fake.IntBetween(1, min(4, len(templates)))
		used := make(map[int]bool, count)
		refs := make([]entities.IngredientReference, 0, count)
		for len(refs) < count {
			k := cmd.fake.IntBetween(0, len(templates)-1)
			if used[k] {
				continue
			}
			used[k] = true
			t := templates[k]
			refs = append(refs, entities.IngredientReference{
				IngredientID: ingredientID(k),
				Quantity:     decimal.New(int64(cmd.fake.IntBetween(t.minPortion, t.maxPortion)), -2),
				Unit:         t.unit,
			})
		}

		name := fmt.Sprintf("%s %s", titleCase(cmd.fake.Lorem().Word()), cmd.fake.RandomStringElement(dishes))
		price := decimal.NewFromFloat(cmd.fake.Float64(2, 4, 24)).Round(2)
		item, err := entities.NewMenuItem(entities.MenuItemID(fmt.Sprintf("ITEM%02d", i+1)), name, price, refs)
		if err != nil {
			return nil, err
		}
		menuItems = append(menuItems, item)
	}
	return menuItems, nil
}

// generateOrders creates orders of 1-3 distinct dishes, 1-3 portions each
func (cmd *GenerateCommand) generateOrders(menuItems []*entities.MenuItem) []csv.ScenarioOrder {
	orders := make([]csv.ScenarioOrder, 0, cmd.config.Orders)
	for i := 0; i < cmd.config.Orders; i++ {
		lines := cmd.fake.IntBetween(1, min(3, len(menuItems)))
		used := make(map[int]bool, lines)
		items := make([]entities.OrderItem, 0, lines)
		for len(items) < lines {
			k := cmd.fake.IntBetween(0, len(menuItems)-1)
			if used[k] {
				continue
			}
			used[k] = true
			item := entities.OrderItem{
				MenuItemID:   menuItems[k].ID(),
				MenuItemName: menuItems[k].Name(),
				Quantity:     cmd.fake.IntBetween(1, 3),
				Price:        menuItems[k].Price(),
			}
			if cmd.fake.IntBetween(1, 5) == 1 {
				item.SpecialInstructions = cmd.fake.RandomStringElement(instructions)
			}
			items = append(items, item)
		}

		orders = append(orders, csv.ScenarioOrder{
			Ref:          fmt.Sprintf("O%03d", i+1),
			TableNumber:  cmd.fake.IntBetween(1, 20),
			CustomerName: cmd.fake.Person().FirstName(),
			Items:        items,
		})
	}
	return orders
}

// generateIngredients stocks each ingredient at coverage times what the orders consume
func (cmd *GenerateCommand) generateIngredients(
	templates []pantryItem,
	menuItems []*entities.MenuItem,
	orders []csv.ScenarioOrder,
) ([]*entities.Ingredient, error) {
	demand := cmd.calculateDemand(menuItems, orders)
	coverage := decimal.NewFromFloat(cmd.config.Coverage)

	ingredients := make([]*entities.Ingredient, 0, len(templates))
	for i, t := range templates {
		id := ingredientID(i)
		stock := demand[id].Mul(coverage).Round(2)
		if stock.IsZero() {
			stock = decimal.NewFromInt(int64(cmd.fake.IntBetween(1, 10)))
		}
		minStock := stock.Div(decimal.NewFromInt(10)).Round(2)
		reorderPoint := minStock.Mul(decimal.NewFromInt(2))
		cost := decimal.NewFromFloat(cmd.fake.Float64(2, 1, 12)).Round(2)
		if !cost.IsPositive() {
			cost = decimal.NewFromInt(1)
		}

		ingredient, err := entities.NewIngredient(id, t.name, stock, t.unit, minStock, reorderPoint, cost)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, nil
}

// calculateDemand sums recipe quantity times portions over every order line
func (cmd *GenerateCommand) calculateDemand(menuItems []*entities.MenuItem, orders []csv.ScenarioOrder) map[entities.IngredientID]decimal.Decimal {
	recipes := make(map[entities.MenuItemID]*entities.MenuItem, len(menuItems))
	for _, item := range menuItems {
		recipes[item.ID()] = item
	}

	demand := make(map[entities.IngredientID]decimal.Decimal)
	for _, order := range orders {
		for _, line := range order.Items {
			portions := decimal.NewFromInt(int64(line.Quantity))
			for _, ref := range recipes[line.MenuItemID].RequiredIngredients() {
				demand[ref.IngredientID] = demand[ref.IngredientID].Add(ref.Quantity.Mul(portions))
			}
		}
	}
	return demand
}

func titleCase(word string) string {
	if word == "" {
		return "House"
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var config GenerateConfig

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random kitchen scenario to a directory",
		Example: `  # Small scenario with just enough stock for half the orders
  fulfillment generate --dir ./scenarios/lunch --orders 40 --coverage 0.5

  # Reproducible scenario
  fulfillment generate --dir ./scenarios/repro --seed 12345 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := NewGenerateCommand(config, cmd.OutOrStdout()).Execute()
			return err
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&config.Ingredients, "ingredients", 12, "number of ingredients")
	flags.IntVar(&config.MenuItems, "menu-items", 6, "number of menu items")
	flags.IntVar(&config.Orders, "orders", 20, "number of orders")
	flags.Float64Var(&config.Coverage, "coverage", 1.0, "stock as a multiple of what the orders need")
	flags.StringVar(&config.OutputDir, "dir", "", "output directory for generated files")
	flags.Int64Var(&config.Seed, "seed", 0, "random seed for reproducible generation")
	flags.BoolVar(&config.Verbose, "verbose", false, "enable verbose output")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
