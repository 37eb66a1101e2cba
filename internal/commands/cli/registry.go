package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_assetpool/internal/commands/cli/plugin"
	"github.com/andrei-cloud/go_assetpool/internal/commands/cli/server"
	"github.com/andrei-cloud/go_assetpool/internal/commands/cli/watch"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	serveCmd, err := server.NewServeCommand()
	if err != nil {
		return fmt.Errorf("failed to create serve command: %w", err)
	}
	root.AddCommand(serveCmd)

	root.AddCommand(plugin.NewPluginCommand())
	root.AddCommand(watch.NewWatchCommand())

	return nil
}
