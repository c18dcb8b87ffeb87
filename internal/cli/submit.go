package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/attendkeeper/internal/common"
	"github.com/dmitrijs2005/attendkeeper/internal/engine"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/spf13/cobra"
)

func newSubmitCmd(open opener) *cobra.Command {
	var (
		status   string
		location string
		lat, lon float64
	)

	cmd := &cobra.Command{
		Use:   "submit <person>",
		Short: "Submit today's check-in for a person",
		Long: `Submit today's check-in for a person.

The status is one of Hadir, Izin, Sakit, "Dinas Luar" (or present, leave,
sick, offsite). Coordinates are optional; without them the distance from
the site is left empty.`,
		Args: cobra.MinimumNArgs(1),
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			if err := app.engine.Refresh(ctx); err != nil {
				app.log.Warn(ctx, "refresh before submit failed", "error", err)
			}

			c := engine.Candidate{Status: status, LocationDescription: location}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				c.Coordinates = &models.Coordinates{Lat: lat, Lon: lon}
			}

			res, err := app.engine.InitiateSubmission(ctx, strings.Join(args, " "), c)
			printResult(cmd.OutOrStdout(), res)
			return err
		}),
	}

	cmd.Flags().StringVarP(&status, "status", "s", "Hadir", "check-in status")
	cmd.Flags().StringVarP(&location, "location", "l", "", "free-text location description")
	cmd.Flags().Float64Var(&lat, "lat", 0, "observed latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "observed longitude")
	return cmd
}

func printResult(w io.Writer, res *engine.Result) {
	if res == nil {
		return
	}
	rec := res.CheckIn

	switch res.State {
	case engine.StateCommitted:
		fmt.Fprintf(w, "Checked in: %s (%s) on %s at %s\n",
			rec.PersonID, rec.RawStatus, rec.Date, rec.SubmittedAt.Format("15:04:05"))
		if rec.LatenessMinutes > 0 {
			fmt.Fprintf(w, "  Late by %d min\n", rec.LatenessMinutes)
		}
		if d := rec.DistanceFromSiteMeters; d != nil {
			fmt.Fprintf(w, "  Distance from site: %d m\n", *d)
		} else {
			fmt.Fprintln(w, "  Distance from site: unknown")
		}
	default:
		fmt.Fprintf(w, "Not checked in (%s): %s\n", res.State, describe(res.Err))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Message)
	}
}

func describe(err error) string {
	var se *common.SubmissionError
	if !errors.As(err, &se) {
		return fmt.Sprint(err)
	}
	msg := se.Error()
	if se.Retryable {
		msg += " (you can try again)"
	}
	return msg
}
