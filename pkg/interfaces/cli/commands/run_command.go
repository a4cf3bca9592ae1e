package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/application/dto"
	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var scenarioDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit every order of a scenario and report the outcome",
		Long: `run loads ingredients.csv, menu_items.csv, recipes.csv and orders.csv from a scenario
directory, seeds the store with the kitchen and submits the orders in file order under the
configured fulfillment policy.`,
		Example: "  fulfillment run --scenario testdata/diner --policy best-effort",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx, scenario)
			if err != nil {
				return err
			}
			defer opts.closeApp(ctx, a)

			report, err := runScenario(ctx, a, scenario)
			if err != nil {
				return err
			}
			report.Scenario = scenarioDir
			return output.WriteRunReport(cmd.OutOrStdout(), report, opts.output)
		},
	}

	cmd.Flags().StringVarP(&scenarioDir, "scenario", "s", "", "scenario directory containing the CSV files")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// runScenario submits the scenario's orders one at a time. A rejected order does not stop
// the run.
func runScenario(ctx context.Context, a *app, scenario *csv.Scenario) (*output.RunReport, error) {
	start := time.Now()
	report := &output.RunReport{
		Policy: a.orderManager.Policy().String(),
		Orders: make([]output.OrderOutcome, 0, len(scenario.Orders)),
	}

	for _, order := range scenario.Orders {
		result, err := a.orderManager.SubmitOrder(ctx, dto.CreateOrderRequest{
			TableNumber:  order.TableNumber,
			CustomerName: order.CustomerName,
			Items:        order.Items,
		})
		if err != nil {
			a.logger.Info("order rejected",
				zap.String("order_ref", order.Ref),
				zap.String("kind", entities.KindOf(err).String()),
				zap.Error(err))
		}
		report.Orders = append(report.Orders, output.NewOrderOutcome(order.Ref, order.CustomerName, result, err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	ids := make([]entities.IngredientID, 0, len(scenario.Ingredients))
	for _, ingredient := range scenario.Ingredients {
		ids = append(ids, ingredient.ID())
	}
	reorder, err := a.inventory.ReorderReport(ctx, ids)
	if err != nil {
		return nil, err
	}
	report.Reorder = reorder
	report.Elapsed = time.Since(start)
	return report, nil
}
