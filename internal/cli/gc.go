package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGCCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove idempotency markers older than the retention window",
		Args:  cobra.NoArgs,
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			n, err := app.engine.PurgeMarkers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d markers.\n", n)
			return nil
		}),
	}
}
