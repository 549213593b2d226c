package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finleyb/corkboard/internal/engine"
	"github.com/finleyb/corkboard/internal/filter"
	"github.com/finleyb/corkboard/internal/printer"
	"github.com/finleyb/corkboard/internal/socket"
	"github.com/finleyb/corkboard/pkg/board"
)

var (
	watchProject  string
	watchOnly     string
	watchEntity   string
	watchPresence bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a board's live activity",
	Long: `Open a project's board and follow its realtime event stream: task,
group, and connection changes plus member presence, as other members edit.

The board state is bootstrapped over REST, then kept consistent against
the socket stream; after any reconnect the full snapshot is re-fetched
before further deltas are trusted.

Examples:
  cork watch --project 1f3c...
  cork watch --project 1f3c... --log-file cork.log`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Project ID (required)")
	watchCmd.Flags().StringVar(&logFile, "log-file", "", "Rotating log file for the session")
	watchCmd.Flags().StringVar(&watchOnly, "only", "", "Only show event kinds matching a glob, e.g. 'card_*'")
	watchCmd.Flags().StringVar(&watchEntity, "entity", "", "Only show events for one entity ID")
	watchCmd.Flags().BoolVar(&watchPresence, "presence", true, "Show presence events")
	watchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, sess, client, log, err := newClient()
	if err != nil {
		return err
	}
	if !sess.Active() {
		return printer.Error("Not logged in", "The watch command needs an authenticated session.", []string{
			"Run 'cork login' first",
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ch := socket.New(cfg.SocketURL(), watchProject, sess, log, socket.Options{})
	eng := engine.New(watchProject, client, ch, log)
	defer eng.Close()

	criteria := &filter.Criteria{KindGlob: watchOnly, EntityID: watchEntity, Presence: watchPresence}
	eng.Observe(func(d *board.Delta) {
		if criteria.Matches(d) {
			printer.Event(d)
		}
	})

	printer.Step("watching board %s (ctrl-c to stop)\n", watchProject)
	if err := eng.Run(ctx); err != nil {
		return err
	}

	snap := eng.Snapshot()
	printer.Info("\nfinal state: %d tasks, %d groups, %d connections\n",
		len(snap.Tasks), len(snap.Groups), len(snap.Connections))
	return nil
}
