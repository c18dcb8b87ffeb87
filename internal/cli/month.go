package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/spf13/cobra"
)

func newMonthCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Summarize a month of check-ins (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			today, err := app.engine.Today().Time(time.UTC)
			if err != nil {
				return err
			}
			year, month := today.Year(), today.Month()
			if len(args) == 1 {
				t, err := time.Parse("2006-01", args[0])
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
				}
				year, month = t.Year(), t.Month()
			}

			s, err := app.engine.MonthSummary(cmd.Context(), year, month)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d: %d check-ins\n", s.Month, s.Year, len(s.Records))
			for _, st := range models.Statuses {
				fmt.Fprintf(w, "  %-10s %d\n", st.Wire(), s.Counts[st])
			}
			if s.Unrecognized > 0 {
				fmt.Fprintf(w, "  %-10s %d\n", "?", s.Unrecognized)
			}
			if s.Unreadable > 0 {
				fmt.Fprintf(w, "warning: %d ledger rows have an unreadable date\n", s.Unreadable)
			}
			return nil
		}),
	}
}
