package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd(open opener) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep refreshing and print today's attendance until interrupted",
		Args:  cobra.NoArgs,
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			go app.engine.Run(ctx)

			if every <= 0 {
				every = app.config.RefreshInterval
			}
			ticker := time.NewTicker(every)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					printSnapshot(cmd.OutOrStdout(), app.engine.GetTodaySnapshot())
				case <-ctx.Done():
					return nil
				}
			}
		}),
	}
	cmd.Flags().DurationVar(&every, "print-every", 0, "print interval (default: refresh interval)")
	return cmd
}
