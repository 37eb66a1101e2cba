// Package watch provides an interactive view of a timed pool handing out and
// reclaiming entities.
package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_assetpool/internal/config"
	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var (
		size     int
		delay    time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a timed pool",
		Long: `Open an interactive view of a timed pool. Every acquisition is returned
automatically after the return delay; the pool grows when all slots are busy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.Get().AssetSettings()
			if cmd.Flags().Changed("size") {
				s.InitialSize = size
			}
			if cmd.Flags().Changed("delay") {
				s.ReturnDelay = delay
			}

			m, err := newModel(cmd.Context(), s, scheduler.New(nil), interval)
			if err != nil {
				return err
			}

			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()

			return err
		},
	}

	cmd.Flags().IntVar(&size, "size", 4, "initial pool size")
	cmd.Flags().DurationVar(&delay, "delay", 5*time.Second, "return delay of every acquisition")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "scheduler tick interval")

	return cmd
}
