package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/fulfillment/pkg/infrastructure/reconciliation"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Inspect and resolve orders whose stock needs a manual check",
		Long: `Orders land in the reconciliation log when they were persisted but their inventory
deduction failed, or when a best-effort order could only deduct some of its lines.`,
	}
	cmd.AddCommand(newReconcileListCommand(opts), newReconcileResolveCommand(opts))
	return cmd
}

func newReconcileListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List unresolved reconciliation entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openReconciliationLog()
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := repo.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			return output.WriteReconciliation(cmd.OutOrStdout(), entries, opts.output)
		},
	}
}

func newReconcileResolveCommand(opts *rootOptions) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "resolve ORDER_ID",
		Short: "Mark every pending entry of an order as checked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openReconciliationLog()
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Resolve(cmd.Context(), args[0], note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Order %s resolved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "what was checked or corrected")
	return cmd
}

func (o *rootOptions) openReconciliationLog() (*reconciliation.SQLiteRepository, error) {
	if o.cfg.Reconciliation.Path == "" {
		return nil, fmt.Errorf("reconciliation.path is not set")
	}
	return reconciliation.OpenSQLite(o.cfg.Reconciliation.Path)
}
