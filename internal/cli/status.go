package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status <person>",
		Short: "Tell whether a person may still check in today",
		Args:  cobra.MinimumNArgs(1),
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			if err := app.engine.Prime(ctx); err != nil {
				app.log.Warn(ctx, "showing cached attendance", "error", err)
			}

			person := strings.Join(args, " ")
			adm, err := app.engine.QueryAdmissibility(ctx, person)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if adm.Admissible {
				fmt.Fprintf(w, "%s has not checked in today.\n", person)
				return nil
			}
			fmt.Fprintf(w, "%s cannot check in: %s.\n", person, adm.Reason)
			if app.engine.Submitted(person) {
				fmt.Fprintln(w, "Today's attendance lists them as checked in.")
			}
			return nil
		}),
	}
}
