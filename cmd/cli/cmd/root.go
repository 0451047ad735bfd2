// Package cmd provides the CLI commands for agrimarket.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agrimarket/core/output"
	"agrimarket/internal/app"
	"agrimarket/internal/config"
	"agrimarket/internal/logging"
	"agrimarket/internal/version"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "agrimarket",
	Short: "Find markets, price transport and forecast crop prices",
	Long: `agrimarket helps farmers decide where to sell.

It ranks nearby mandis, estimates the net profit of hauling a load to one,
and projects short-term crop prices from recent market history.

Examples:
  agrimarket markets nearby --lat 18.52 --lon 73.86 --crop Onion
  agrimarket transport --crop Wheat --quantity 10 --from 18.52,73.86 --to MH002
  agrimarket forecast Tomato --format json
  agrimarket prices seed --seed 42`,
	SilenceUsage: true,
}

// Execute runs the CLI. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json, yaml or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "auto", "output format (auto, table, json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.LoadAndValidate(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openApp builds the services from the active configuration
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, config.Get(), logging.Logger)
}

// render writes v to stdout in the selected format
func render(cmd *cobra.Command, v output.Tabular) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), format, v, v)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agrimarket version %s (%s)\n", version.Version, version.Commit)
	},
}
