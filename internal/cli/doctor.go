package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"archupdates/internal/config"
	"archupdates/internal/executor"
	"archupdates/internal/ui"
	"archupdates/pkg/detector"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose system issues",
	Long: `Check that the tools and paths archupdates depends on are present.

Examples:
  archupdates doctor                  # Run diagnostics`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	issues := 0

	ui.HeaderMsg("Running diagnostics...")

	sysInfo, err := detector.Detect()
	if err != nil {
		ui.WarningMsg("System detection incomplete: %v", err)
	}
	switch {
	case sysInfo == nil:
		ui.ErrorMsg("System detection failed")
		issues++
	case sysInfo.IsArchFamily():
		ui.SuccessMsg("System detected: %s (%s)", sysInfo.PrettyName, sysInfo.Arch)
	default:
		ui.ErrorMsg("%s is not an Arch Linux based distribution", sysInfo.PrettyName)
		issues++
	}

	ui.HeaderMsg("Required tools")
	for _, bin := range []string{cfg.Pacman.Binary, cfg.Pacman.ConfBinary} {
		if executor.Available(bin) {
			ui.SuccessMsg("%s is available", bin)
		} else {
			ui.ErrorMsg("%s not found", bin)
			issues++
		}
	}
	if bin := cfg.Pacman.FakerootBinary; bin != "" {
		if executor.Available(bin) {
			ui.SuccessMsg("%s is available", bin)
		} else {
			ui.ErrorMsg("%s not found; sync databases cannot be refreshed without root", bin)
			issues++
		}
	}

	ui.HeaderMsg("Devel package tools")
	for _, kind := range []string{"git", "hg", "svn", "bzr"} {
		bin := kind
		if override, ok := cfg.Devel.Binaries[kind]; ok {
			bin = override
		}
		if executor.Available(bin) {
			ui.SuccessMsg("%s is available", bin)
		} else {
			ui.MutedMsg("%s is not installed; %s packages cannot be checked", bin, kind)
		}
	}

	ui.HeaderMsg("Paths")
	local := filepath.Join(cfg.Pacman.DBPath, "local")
	if _, err := os.Stat(local); err != nil {
		ui.ErrorMsg("Local database: %v", err)
		issues++
	} else {
		ui.SuccessMsg("Local database: %s", local)
	}
	if _, err := os.Stat(cfg.Pacman.LogPath); err != nil {
		ui.WarningMsg("Pacman log: %v (news since the last upgrade cannot be determined)", err)
	} else {
		ui.SuccessMsg("Pacman log: %s", cfg.Pacman.LogPath)
	}

	cfgPath := cfgFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	if _, err := os.Stat(cfgPath); err != nil {
		ui.MutedMsg("Config file: %s (not present, using defaults)", cfgPath)
	} else {
		ui.SuccessMsg("Config file: %s", cfgPath)
	}
	ui.MutedMsg("State database: %s", config.StatePath())
	ui.MutedMsg("Sync cache: %s", cfg.SyncCacheDir())

	// Summary
	ui.HeaderMsg("Summary")
	if issues == 0 {
		ui.SuccessMsg("No issues found! archupdates is ready to use.")
	} else {
		ui.WarningMsg("Found %d issue(s). Some sources may not work correctly.", issues)
	}

	return nil
}
