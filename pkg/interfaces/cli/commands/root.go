package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/config"
	"github.com/vsinha/fulfillment/pkg/infrastructure/observability"
	"github.com/vsinha/fulfillment/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fulfillment/pkg/interfaces/cli/output"
)

// rootOptions is shared by every subcommand. cfg and logger are ready once the root's
// PersistentPreRunE has run.
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	output  output.Config

	cfg    *config.Config
	logger *zap.Logger

	ownsLogger      bool
	shutdownTracing func(context.Context) error
}

// NewRootCommand builds the fulfillment command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(nil)
}

// newRootCommand uses logger instead of building one from config when it is non-nil
func newRootCommand(logger *zap.Logger) *cobra.Command {
	opts := &rootOptions{v: config.New(), logger: logger}

	cmd := &cobra.Command{
		Use:   "fulfillment",
		Short: "Inventory-aware order fulfillment for a restaurant kitchen",
		Long: `fulfillment submits restaurant orders against ingredient stock. Each order is
validated, checked for availability, persisted and deducted from inventory under an
all-or-nothing or best-effort policy, with low-stock alerts for ingredients that reach
their reorder point.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (YAML or JSON)")
	flags.String("store", config.BackendMemory, "store backend: memory or postgres")
	flags.String("policy", entities.AllOrNothing.String(), "fulfillment policy: all-or-nothing or best-effort")
	flags.String("reconciliation-db", "", "path of the SQLite reconciliation log")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "json", "log format: json or console")
	flags.StringVarP(&opts.output.Format, "format", "f", output.FormatText, "output format: text or json")
	flags.StringVarP(&opts.output.OutputDir, "output", "o", "", "directory that also receives JSON output")

	for key, name := range map[string]string{
		"store.backend":       "store",
		"fulfillment.policy":  "policy",
		"reconciliation.path": "reconciliation-db",
		"log.level":           "log-level",
		"log.format":          "log-format",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(name))
	}

	cmd.AddCommand(
		newRunCommand(opts),
		newPreviewCommand(opts),
		newRestockCommand(opts),
		newValidateCommand(opts),
		newGenerateCommand(opts),
		newReconcileCommand(opts),
	)
	return cmd
}

func (o *rootOptions) setup(ctx context.Context) error {
	if err := o.output.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	o.cfg = cfg

	if o.logger == nil {
		if o.logger, err = observability.NewLogger(cfg.Log, cfg.OTel.ServiceName); err != nil {
			return err
		}
		o.ownsLogger = true
	}

	o.shutdownTracing, err = observability.SetupTracing(ctx, cfg.OTel)
	if err != nil {
		return err
	}
	return nil
}

func (o *rootOptions) teardown(ctx context.Context) error {
	var err error
	if o.shutdownTracing != nil {
		err = o.shutdownTracing(ctx)
	}
	if o.ownsLogger {
		// syncing stderr fails on some terminals
		_ = o.logger.Sync()
	}
	return err
}

// openApp wires the services for one command and loads scenario into the store when non-nil
func (o *rootOptions) openApp(ctx context.Context, scenario *csv.Scenario) (*app, error) {
	return newApp(ctx, o.cfg, o.logger, scenario)
}

// closeApp drains notifications; failures are logged since the command's own result stands
func (o *rootOptions) closeApp(ctx context.Context, a *app) {
	if err := a.Close(ctx); err != nil {
		o.logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
