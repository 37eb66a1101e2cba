// Package cli provides the CLI command structure for go_assetpool.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_assetpool/internal/config"
	"github.com/andrei-cloud/go_assetpool/internal/logging"
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "go_assetpool",
		Short: "Pooled asset server and utilities",
		Long: `Serve WASM asset commands from growable instance pools, inspect the
loaded assets and watch timed pools return their entities.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.Initialize(cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg := config.Get()

			return logging.Setup(cfg.Log.Level, cfg.Log.Format)
		},
	}

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_assetpool/config.yaml)")

	// Global flags override config file settings.
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "human", "logging format (human, json)")
	rootCmd.PersistentFlags().String("assets-path", "assets", "path to the asset directory")

	v := config.GetViper()
	for key, flag := range map[string]string{
		"log.level":   "log-level",
		"log.format":  "log-format",
		"assets.path": "assets-path",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
