package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"archupdates/internal/logger"
	"archupdates/internal/monitor"
	"archupdates/internal/tui"
	"archupdates/internal/ui"
	"archupdates/pkg/updates"
)

var (
	watchPlain   bool
	watchJSON    bool
	watchSources []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep checking for updates",
	Long: `Check for updates periodically and show the results in an interactive
dashboard. Offline checks run every general.interval_secs; every
general.online_check_period-th check goes online. Changes to the local
package database or the pacman log trigger an offline check right away.

Examples:
  archupdates watch                   # Interactive dashboard
  archupdates watch --plain           # One summary line per check
  archupdates watch --json            # One JSON document per check`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print a summary line per check instead of the dashboard")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print each check result as a JSON line")
	watchCmd.Flags().StringSliceVarP(&watchSources, "source", "s", nil, "sources to check (pacman, aur, devel, news)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svc, err := newServices(ctx, watchSources)
	if err != nil {
		return err
	}

	worker := updates.NewWorker(svc.checker(), updates.WorkerOptions{
		Interval:     cfg.Interval(),
		OnlinePeriod: cfg.General.OnlineCheckPeriod,
		Since:        svc.newsSince,
	})

	raw := make(chan updates.Event)
	go worker.Run(ctx, raw)
	events := recordSnapshots(ctx, svc, raw)

	changes := watchLocalState(ctx)

	if watchPlain || watchJSON {
		return watchPlainOutput(ctx, cmd.OutOrStdout(), svc, worker, events, changes)
	}

	// Log lines would tear the dashboard.
	logger.Default().SetOutput(io.Discard)
	defer logger.Default().SetOutput(os.Stderr)

	return tui.Run(tui.Options{
		Worker:   worker,
		Events:   events,
		Changes:  changes,
		MarkRead: svc.state.MarkNewsRead,
		Exclude:  svc.exclude,
		Links:    svc.links(),
	})
}

// recordSnapshots saves the snapshot of every finished check and forwards
// all events.
func recordSnapshots(ctx context.Context, svc *services, in <-chan updates.Event) <-chan updates.Event {
	out := make(chan updates.Event)
	go func() {
		defer close(out)
		for ev := range in {
			if ev.Kind == updates.EventFinished {
				svc.saveSnapshot(&ev.Snapshot)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// watchLocalState signals changes of the local package database and the
// pacman log. It returns nil when neither can be watched.
func watchLocalState(ctx context.Context) <-chan struct{} {
	m := monitor.New(monitor.DefaultDebounce,
		filepath.Join(cfg.Pacman.DBPath, "local"),
		cfg.Pacman.LogPath,
	)
	changes, err := m.Watch(ctx)
	if err != nil {
		if errors.Is(err, monitor.ErrNothingToWatch) {
			logger.Debug("not watching local state: %v", err)
		} else {
			logger.Warn("not watching local state: %v", err)
		}
		return nil
	}
	return changes
}

func watchPlainOutput(ctx context.Context, w io.Writer, svc *services, worker *updates.Worker, events <-chan updates.Event, changes <-chan struct{}) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			worker.Recheck()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind != updates.EventFinished {
				continue
			}
			if watchJSON {
				if err := enc.Encode(ev.Snapshot); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(w, "%s %-7s %s\n",
				ev.Snapshot.CheckedAt.Local().Format(time.TimeOnly),
				ev.Mode,
				ui.Summary(&ev.Snapshot, svc.exclude),
			)
		}
	}
}
