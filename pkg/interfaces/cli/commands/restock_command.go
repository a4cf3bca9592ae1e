package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/config"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

func newRestockCommand(opts *rootOptions) *cobra.Command {
	var scenarioDir string

	cmd := &cobra.Command{
		Use:   "restock INGREDIENT_ID QUANTITY",
		Short: "Add stock to an ingredient",
		Long: `restock adds QUANTITY (in the ingredient's own unit) to an ingredient's stock.

With the postgres store the change is permanent and --scenario may be omitted. With the
memory store the kitchen is loaded from --scenario first and the result is only printed.`,
		Example: "  fulfillment restock PATTY 24 --store postgres",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			quantity, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}

			var scenario *csv.Scenario
			if scenarioDir != "" {
				if scenario, err = csv.NewLoader().LoadScenario(scenarioDir); err != nil {
					return err
				}
			} else if opts.cfg.Store.Backend == config.BackendMemory {
				return fmt.Errorf("--scenario is required with the %s store", config.BackendMemory)
			}

			a, err := opts.openApp(ctx, scenario)
			if err != nil {
				return err
			}
			defer opts.closeApp(ctx, a)

			ingredient, err := a.inventory.Replenish(ctx, entities.IngredientID(args[0]), quantity)
			if err != nil {
				return err
			}
			return output.WriteIngredient(cmd.OutOrStdout(), ingredient, opts.output)
		},
	}

	cmd.Flags().StringVarP(&scenarioDir, "scenario", "s", "", "scenario directory to seed the store from")
	return cmd
}
