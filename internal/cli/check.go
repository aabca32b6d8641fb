package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"archupdates/internal/ui"
	"archupdates/pkg/updates"
)

var (
	checkOffline bool
	checkLast    bool
	checkFormat  string
	checkSources []string
	checkLinks   bool
	checkAll     bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for pending updates",
	Long: `Run one check of every enabled update source and print the result.

An online check refreshes the private sync databases, queries the AUR
and the upstream repositories of devel packages, and fetches the news
feed. An offline check compares the installed packages against the data
of the last online check without network access.

The command exits with status 2 when any source could not be checked.

Examples:
  archupdates check                   # Online check of all sources
  archupdates check --offline         # No network access
  archupdates check -s pacman -s aur  # Only repository and AUR packages
  archupdates check -f json           # Machine readable output
  archupdates check --last            # Print the last saved result`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkOffline, "offline", false, "reuse the data of the last online check")
	checkCmd.Flags().BoolVar(&checkLast, "last", false, "print the last saved result without checking")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "output format (text, json, yaml)")
	checkCmd.Flags().StringSliceVarP(&checkSources, "source", "s", nil, "sources to check (pacman, aur, devel, news)")
	checkCmd.Flags().BoolVarP(&checkLinks, "links", "l", false, "print package and news links")
	checkCmd.Flags().BoolVarP(&checkAll, "all", "a", false, "also list up to date devel packages")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := outputFormat(checkFormat)
	if err != nil {
		return err
	}
	svc, err := newServices(ctx, checkSources)
	if err != nil {
		return err
	}

	var snap updates.Snapshot
	if checkLast {
		last, err := svc.state.LastSnapshot()
		if err != nil {
			return fmt.Errorf("failed to read the last result: %w", err)
		}
		if last == nil {
			return errors.New("no saved result; run a check first")
		}
		snap = *last
	} else {
		checker := svc.checker()
		since := svc.newsSince()
		check := func() error {
			if checkOffline {
				snap = checker.RefreshOffline(ctx, since)
			} else {
				snap = checker.Refresh(ctx, since)
			}
			return nil
		}
		msg := "Checking for updates..."
		if checkOffline {
			msg = "Checking for updates (offline)..."
		}
		if format == ui.FormatText {
			_ = ui.WithSpinner(msg, check)
		} else {
			_ = check()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		svc.saveSnapshot(&snap)
	}

	err = ui.Render(cmd.OutOrStdout(), &snap, format, ui.RenderOptions{
		Links:       svc.links(),
		Exclude:     svc.exclude,
		ShowCurrent: checkAll,
		ShowLinks:   checkLinks,
	})
	if err != nil {
		return err
	}
	if snap.HasErrors() {
		return ErrSourcesFailed
	}
	return nil
}
