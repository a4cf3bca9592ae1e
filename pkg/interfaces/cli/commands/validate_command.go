package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/fulfillment/pkg/domain/services"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var scenarioDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario's recipes against its ingredient catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
			if err != nil {
				return err
			}

			validator := services.NewRecipeValidator()
			result := validator.Validate(scenario.MenuItems, scenario.Ingredients)
			result.Errors = append(result.Errors, validator.ValidateIngredientUniqueness(scenario.Ingredients).Errors...)

			if err := output.WriteValidation(cmd.OutOrStdout(), result, opts.output); err != nil {
				return err
			}
			if !result.IsValid() {
				return fmt.Errorf("recipe validation failed with %d errors", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioDir, "scenario", "s", "", "scenario directory containing the CSV files")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}
