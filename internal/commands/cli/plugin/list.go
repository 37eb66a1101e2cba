package plugin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andrei-cloud/go_assetpool/internal/config"
	"github.com/andrei-cloud/go_assetpool/internal/plugins"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List asset plugins",
		Long:  `Load every asset in the asset directory and list its command, exports and pool.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Logging would interleave with the listing.
			log.Logger = log.Logger.Level(zerolog.Disabled)

			return listPlugins(cmd.Context(), cmd.OutOrStdout(), config.Get(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")

	return cmd
}

func listPlugins(ctx context.Context, out io.Writer, cfg *config.Config, asJSON bool) error {
	pm, err := plugins.NewPluginManager(ctx, cfg.AssetSettings())
	if err != nil {
		return err
	}
	defer func() {
		_ = pm.Close(ctx)
	}()

	if err := pm.LoadAll(ctx, cfg.Assets.Path); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	infos := pm.ListPlugins()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(infos)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Command\tInstances\tExports")
	_, _ = fmt.Fprintln(w, "-------\t---------\t-------")
	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n",
			info.CommandCode,
			info.Stats.Size,
			strings.Join(info.Exports, ", "))
	}

	return w.Flush()
}
