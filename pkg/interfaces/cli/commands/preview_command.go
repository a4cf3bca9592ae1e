package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	var (
		scenarioDir string
		itemSpecs   []string
	)

	cmd := &cobra.Command{
		Use:     "preview",
		Short:   "Show what an order would do to stock without changing it",
		Example: "  fulfillment preview --scenario testdata/diner --item BURGER=2 --item FRIES",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
			if err != nil {
				return err
			}
			items, err := parseItems(itemSpecs, scenario.MenuItems)
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx, scenario)
			if err != nil {
				return err
			}
			defer opts.closeApp(ctx, a)

			preview, err := a.orderManager.PreviewIngredientImpact(ctx, items)
			if err != nil {
				return err
			}
			return output.WritePreview(cmd.OutOrStdout(), preview, opts.output)
		},
	}

	cmd.Flags().StringVarP(&scenarioDir, "scenario", "s", "", "scenario directory containing the CSV files")
	cmd.Flags().StringArrayVarP(&itemSpecs, "item", "i", nil, "menu item as ID or ID=QUANTITY, repeatable")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

// parseItems turns ID[=QUANTITY] specs into order items priced from the menu
func parseItems(specs []string, menu []*entities.MenuItem) ([]entities.OrderItem, error) {
	byID := make(map[entities.MenuItemID]*entities.MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID()] = item
	}

	items := make([]entities.OrderItem, 0, len(specs))
	for _, spec := range specs {
		id, qty, found := strings.Cut(spec, "=")
		quantity := 1
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", spec)
			}
			quantity = n
		}

		menuItem, ok := byID[entities.MenuItemID(strings.TrimSpace(id))]
		if !ok {
			return nil, entities.NewNotFoundError("menu item not found: %s", strings.TrimSpace(id))
		}
		items = append(items, entities.OrderItem{
			MenuItemID:   menuItem.ID(),
			MenuItemName: menuItem.Name(),
			Quantity:     quantity,
			Price:        menuItem.Price(),
		})
	}
	return items, nil
}
