// Package cli implements the mandi command line interface on top of the
// comparison engine and catalog.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourorg/mandi-compare/internal/catalog"
	"github.com/yourorg/mandi-compare/internal/config"
	"github.com/yourorg/mandi-compare/internal/engine"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// app carries the state shared by every subcommand once the root command has
// loaded configuration and the catalog.
type app struct {
	configPath  string
	catalogPath string
	output      string

	cfg      *config.Config
	snapshot *catalog.Snapshot
}

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mandi",
		Short: "Compare mandi profitability for a load of produce",
		Long: `mandi ranks the markets reachable from a farmer's location by the net
profit of selling a load there, after transport and handling costs.

Examples:
  mandi compare --crop wheat --quantity 10 --unit quintal --vehicle tractor --location L1
  mandi compare --crop onion --quantity 2 --unit ton --vehicle truck --location L2 --output json
  mandi crops
  mandi markets --location L1
  mandi --catalog ./catalog.yaml locations`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context())
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to config file (defaults to ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&a.catalogPath, "catalog", "",
		"Catalog file or http(s) URL (overrides config; embedded sample when empty)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", OutputText,
		"Output format: text or json")

	rootCmd.AddCommand(newCompareCommand(a))
	rootCmd.AddCommand(newCropsCommand(a))
	rootCmd.AddCommand(newVehiclesCommand(a))
	rootCmd.AddCommand(newLocationsCommand(a))
	rootCmd.AddCommand(newMarketsCommand(a))

	return rootCmd
}

// load reads configuration and opens the catalog
func (a *app) load(ctx context.Context) error {
	if a.output != OutputText && a.output != OutputJSON {
		return fmt.Errorf("unsupported output format %q", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	config.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)

	source := cfg.Catalog
	if a.catalogPath != "" {
		source = a.catalogPath
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	snapshot, err := catalog.Open(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	a.cfg = cfg
	a.snapshot = snapshot
	return nil
}

// engine builds a comparison engine from the loaded configuration
func (a *app) engine() *engine.Engine {
	return engine.New(a.snapshot,
		engine.WithThresholds(a.cfg.Impact),
		engine.WithParallelism(a.cfg.Parallelism),
	)
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
