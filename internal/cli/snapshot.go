package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(open opener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show today's attendance",
		Args:  cobra.NoArgs,
		RunE: open(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			if err := app.engine.Prime(ctx); err != nil {
				app.log.Warn(ctx, "showing cached attendance", "error", err)
			}
			snap := app.engine.GetTodaySnapshot()
			marked, err := app.engine.MarkedToday(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				out := snapshotJSON(snap)
				out.FromDevice = marked
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			if len(marked) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted from this device: %s\n", strings.Join(marked, ", "))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func printSnapshot(w io.Writer, s models.TodaySnapshot) {
	fmt.Fprintf(w, "Attendance for %s", s.Date)
	if !s.FetchedAt.IsZero() {
		fmt.Fprintf(w, " (updated %s)", s.FetchedAt.Format("15:04:05"))
	}
	if s.Stale {
		fmt.Fprint(w, " [offline, may be out of date]")
	}
	fmt.Fprintln(w)

	for _, st := range models.Statuses {
		fmt.Fprintf(w, "  %-10s %d\n", st.Wire(), s.Counts[st])
	}
	if s.Unrecognized > 0 {
		fmt.Fprintf(w, "  %-10s %d\n", "?", s.Unrecognized)
	}
	fmt.Fprintf(w, "Present: %d  Other: %d\n", s.PresentCount, s.OtherCount)

	if len(s.Roster) > 0 {
		var missing []string
		for _, r := range s.Roster {
			if !r.Submitted {
				missing = append(missing, r.Person.ID)
			}
		}
		fmt.Fprintf(w, "Not checked in: %d of %d\n", len(missing), len(s.Roster))
		for _, id := range missing {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}

	if len(s.Confirmed)+len(s.Provisional) > 0 {
		fmt.Fprintln(w, "Check-ins:")
	}
	for _, rec := range s.Provisional {
		printRecord(w, rec, "pending")
	}
	for _, rec := range s.Confirmed {
		printRecord(w, rec, "")
	}

	for _, c := range s.Conflicts {
		fmt.Fprintf(w, "warning: %d check-ins for %s on %s\n", len(c.Records), c.Key.PersonID, c.Key.Date)
	}
	if s.Unreadable > 0 {
		fmt.Fprintf(w, "warning: %d ledger rows have an unreadable date\n", s.Unreadable)
	}
}

func printRecord(w io.Writer, rec models.CheckIn, note string) {
	line := fmt.Sprintf("  %s  %-24s %-10s", rec.SubmittedAt.Format("15:04"), rec.PersonID, rec.RawStatus)
	if rec.LatenessMinutes > 0 {
		line += fmt.Sprintf(" late %dm", rec.LatenessMinutes)
	}
	if rec.DistanceFromSiteMeters != nil {
		line += " " + strconv.Itoa(*rec.DistanceFromSiteMeters) + "m"
	}
	if note != "" {
		line += " (" + note + ")"
	}
	fmt.Fprintln(w, line)
}

type recordJSON struct {
	Person      string    `json:"person"`
	Status      string    `json:"status"`
	Date        string    `json:"date"`
	SubmittedAt time.Time `json:"submitted_at"`
	Location    string    `json:"location,omitempty"`
	DistanceM   *int      `json:"distance_m,omitempty"`
	LateMinutes int       `json:"late_minutes"`
	Provisional bool      `json:"provisional,omitempty"`
}

type snapshotOut struct {
	Date         string         `json:"date"`
	Counts       map[string]int `json:"counts"`
	Unrecognized int            `json:"unrecognized"`
	Unreadable   int            `json:"unreadable,omitempty"`
	Present      int            `json:"present"`
	Other        int            `json:"other"`
	Records      []recordJSON   `json:"records"`
	NotCheckedIn []string       `json:"not_checked_in"`
	Conflicts    map[string]int `json:"conflicts,omitempty"`
	FromDevice   []string       `json:"from_device,omitempty"`
	FetchedAt    *time.Time     `json:"fetched_at,omitempty"`
	Stale        bool           `json:"stale"`
}

func snapshotJSON(s models.TodaySnapshot) snapshotOut {
	out := snapshotOut{
		Date:         string(s.Date),
		Counts:       map[string]int{},
		Unrecognized: s.Unrecognized,
		Unreadable:   s.Unreadable,
		Present:      s.PresentCount,
		Other:        s.OtherCount,
		Records:      []recordJSON{},
		NotCheckedIn: []string{},
		Stale:        s.Stale,
	}
	for st, n := range s.Counts {
		out.Counts[st.String()] = n
	}
	add := func(rec models.CheckIn, provisional bool) {
		out.Records = append(out.Records, recordJSON{
			Person:      rec.PersonID,
			Status:      rec.RawStatus,
			Date:        string(rec.Date),
			SubmittedAt: rec.SubmittedAt,
			Location:    rec.LocationDescription,
			DistanceM:   rec.DistanceFromSiteMeters,
			LateMinutes: rec.LatenessMinutes,
			Provisional: provisional,
		})
	}
	for _, rec := range s.Provisional {
		add(rec, true)
	}
	for _, rec := range s.Confirmed {
		add(rec, false)
	}
	for _, r := range s.Roster {
		if !r.Submitted {
			out.NotCheckedIn = append(out.NotCheckedIn, r.Person.ID)
		}
	}
	if len(s.Conflicts) > 0 {
		out.Conflicts = map[string]int{}
		for _, c := range s.Conflicts {
			out.Conflicts[c.Key.PersonID] = len(c.Records)
		}
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		out.FetchedAt = &t
	}
	return out
}
