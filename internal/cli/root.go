package cli

import (
	"context"

	"github.com/dmitrijs2005/attendkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/attendkeeper/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. newRemote is used by every command
// that talks to the ledger.
func NewRootCmd(newRemote RemoteFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "checkin",
		Short: "Attendance check-in client for a spreadsheet ledger",
		Long: `checkin records at most one attendance check-in per person per day
against a shared spreadsheet ledger, and shows today's attendance.`,
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	// open builds the App for commands that need one and closes it afterwards.
	open := opener(func(run runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, newRemote)
			if err != nil {
				return err
			}
			defer app.Close()
			return run(cmd, args, app)
		}
	})

	root.AddCommand(
		newSubmitCmd(open),
		newStatusCmd(open),
		newSnapshotCmd(open),
		newMonthCmd(open),
		newWatchCmd(open),
		newGCCmd(open),
	)
	return root
}

type runFunc func(cmd *cobra.Command, args []string, app *App) error

// opener turns a runFunc into a cobra RunE that owns the App lifetime.
type opener func(run runFunc) func(*cobra.Command, []string) error

// Execute runs the command tree against the HTTP ledger.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd(HTTPRemote)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
