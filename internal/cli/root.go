// Package cli implements the command-line interface for archupdates.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"archupdates/internal/config"
	"archupdates/internal/logger"
	"archupdates/internal/ui"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
	logFile bool

	// Global state
	cfg *config.Config
)

// Build metadata - set at build time via ldflags
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "archupdates",
	Short: "Check an Arch Linux system for pending updates",
	Long: `archupdates reports pending updates of an Arch Linux system without
touching the system package databases: repository packages from a private
copy of the sync databases, AUR packages, development packages whose
upstream repository moved on, and unread Arch Linux news.

Examples:
  archupdates check                   # Check every source once
  archupdates check --offline         # Reuse the last online data
  archupdates check -f json -s aur    # AUR updates as JSON
  archupdates watch                   # Interactive dashboard
  archupdates news read               # Mark news as read`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Default().Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "also write logs to the state directory")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(vercmpCmd)
	rootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// initializeApp loads the configuration and applies global flags.
func initializeApp() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	// Apply global flag overrides
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.Color = false
	}

	ui.Init(cfg.ShouldUseColor(), cfg.Output.Unicode)

	logger.SetVerbose(cfg.Output.Verbose)
	if quiet {
		logger.SetQuiet(true)
	}
	if logFile {
		if err := logger.Default().EnableFileLogging(); err != nil {
			ui.WarningMsg("File logging disabled: %v", err)
		}
	}
	return nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print archupdates version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.InfoMsg("archupdates version %s", Version)
		if Commit != "unknown" {
			ui.MutedMsg("  Commit: %s", Commit)
		}
		if BuildTime != "unknown" {
			ui.MutedMsg("  Built:  %s", BuildTime)
		}
	},
}
