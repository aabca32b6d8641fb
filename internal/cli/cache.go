package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"archupdates/internal/ui"
)

var cacheDryRun bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the private sync databases",
	Long: `archupdates keeps its own copy of the pacman sync databases so that
checking for updates never performs a partial sync of the system.

Examples:
  archupdates cache status            # Show where the copy lives
  archupdates cache refresh           # Download fresh databases
  archupdates cache refresh -n        # Print the refresh command`,
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the private sync databases",
	Args:  cobra.NoArgs,
	RunE:  runCacheRefresh,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the private sync databases",
	Args:  cobra.NoArgs,
	RunE:  runCacheStatus,
}

func init() {
	cacheRefreshCmd.Flags().BoolVarP(&cacheDryRun, "dry-run", "n", false, "print the refresh command without running it")

	cacheCmd.AddCommand(cacheRefreshCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
}

func runCacheRefresh(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd.Context(), nil)
	if err != nil {
		return err
	}

	if cacheDryRun {
		ui.Println("%s", strings.Join(svc.cache.RefreshCommand(), " "))
		return nil
	}

	err = ui.WithSpinner("Refreshing sync databases...", func() error {
		return svc.cache.Refresh(cmd.Context())
	})
	if err != nil {
		return err
	}
	ui.SuccessMsg("Sync databases refreshed in %s", svc.cache.Dir())
	return nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd.Context(), nil)
	if err != nil {
		return err
	}

	table := ui.NewTable(cmd.OutOrStdout(), "Property", "Value")
	table.AddRow("Directory", svc.cache.Dir())
	table.AddRow("System dbpath", cfg.Pacman.DBPath)

	last, err := svc.cache.LastRefreshed()
	switch {
	case err != nil:
		table.AddRow("Last refresh", "unknown ("+err.Error()+")")
	case last.IsZero():
		table.AddRow("Last refresh", "never")
	default:
		table.AddRow("Last refresh", last.Local().Format(time.DateTime)+" ("+time.Since(last).Round(time.Second).String()+" ago)")
	}
	table.AddRow("Coalesce window", cfg.CoalesceWindow().String())
	return table.Render()
}
