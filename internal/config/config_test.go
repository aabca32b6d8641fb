package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}

	if cfg.Interval() != 6*time.Second {
		t.Errorf("Interval() = %v, want 6s", cfg.Interval())
	}
	if cfg.Timeout() != 120*time.Second {
		t.Errorf("Timeout() = %v, want 120s", cfg.Timeout())
	}
	if cfg.General.OnlineCheckPeriod != 600 {
		t.Errorf("expected online_check_period 600, got %d", cfg.General.OnlineCheckPeriod)
	}
	if len(cfg.General.Sources) != 4 {
		t.Errorf("expected all 4 sources enabled, got %v", cfg.General.Sources)
	}
	if cfg.AUR.BatchSize != 150 {
		t.Errorf("expected batch size 150, got %d", cfg.AUR.BatchSize)
	}
	if len(cfg.Devel.Suffixes) != 6 {
		t.Errorf("expected 6 devel suffixes, got %v", cfg.Devel.Suffixes)
	}
	if !cfg.Output.Color {
		t.Error("expected Color to be true by default")
	}
	if cfg.Output.Verbose {
		t.Error("expected Verbose to be false by default")
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[general]
interval_secs = 10
ignore = ["linux", "nvidia-*"]
exclude_from_counter = ["aur", "devel"]

[pacman]
coalesce_window_secs = 0

[pacman.repo_urls]
chaotic-aur = "https://gitlab.com/chaotic-aur/pkgbuilds/-/tree/main/{pkgname}"

[aur]
batch_size = 50

[devel]
concurrency = 2

[devel.binaries]
git = "/usr/local/bin/git"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.General.IntervalSecs != 10 {
		t.Errorf("interval_secs = %d, want 10", cfg.General.IntervalSecs)
	}
	if cfg.General.TimeoutSecs != 120 {
		t.Errorf("unset keys must keep defaults, timeout_secs = %d", cfg.General.TimeoutSecs)
	}
	if len(cfg.General.Ignore) != 2 || cfg.General.Ignore[1] != "nvidia-*" {
		t.Errorf("ignore = %v", cfg.General.Ignore)
	}
	if len(cfg.General.ExcludeFromCounter) != 2 {
		t.Errorf("exclude_from_counter = %v", cfg.General.ExcludeFromCounter)
	}
	if cfg.CoalesceWindow() != 0 {
		t.Errorf("CoalesceWindow() = %v, want 0", cfg.CoalesceWindow())
	}
	if !strings.Contains(cfg.Pacman.RepoURLs["chaotic-aur"], "{pkgname}") {
		t.Errorf("repo_urls = %v", cfg.Pacman.RepoURLs)
	}
	if cfg.AUR.BatchSize != 50 || cfg.AUR.MaxRetries != 3 {
		t.Errorf("aur = %+v", cfg.AUR)
	}
	if cfg.Devel.Concurrency != 2 || cfg.Devel.Binaries["git"] != "/usr/local/bin/git" {
		t.Errorf("devel = %+v", cfg.Devel)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[general\ninterval_secs = 1", "failed to parse"},
		{"bad source", "[general]\nsources = [\"flatpak\"]", "unknown source"},
		{"zero interval", "[general]\ninterval_secs = 0", "interval_secs"},
		{"bad format", "[output]\nformat = \"xml\"", "output.format"},
		{"negative retries", "[aur]\nmax_retries = -1", "max_retries"},
		{"cache is dbpath", "[pacman]\ndbpath = \"/var/lib/pacman\"\ncache_dir = \"/var/lib/pacman/\"", "cache_dir"},
		{"cache inside dbpath", "[pacman]\ndbpath = \"/var/lib/pacman\"\ncache_dir = \"/var/lib/pacman/private\"", "cache_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFrom() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general]\nfrobnicate = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err != nil {
		t.Errorf("unknown keys must only warn, got %v", err)
	}
}

func TestShouldUseColor(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{Color: true},
	}

	// Should return true when Color is true and NO_COLOR is not set
	t.Setenv("NO_COLOR", "")
	if !cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return true")
	}

	// Should return false when NO_COLOR is set
	t.Setenv("NO_COLOR", "1")
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when NO_COLOR is set")
	}
	t.Setenv("NO_COLOR", "")

	// Should return false when Color is false
	cfg.Output.Color = false
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when Color is false")
	}
}

func TestSyncCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg := Default()
	if cfg.SyncCacheDir() != SyncDBPath() {
		t.Errorf("SyncCacheDir() = %s, want %s", cfg.SyncCacheDir(), SyncDBPath())
	}
	cfg.Pacman.CacheDir = "/tmp/custom"
	if cfg.SyncCacheDir() != "/tmp/custom" {
		t.Errorf("SyncCacheDir() = %s, want override", cfg.SyncCacheDir())
	}
}

func TestLoadSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	configPath := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.General.Ignore = []string{"linux"}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if len(loaded.General.Ignore) != 1 || loaded.General.Ignore[0] != "linux" {
		t.Errorf("loaded ignore = %v", loaded.General.Ignore)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	// Loading non-existent file should return default config
	cfg, err := LoadFrom("/non/existent/path/config.toml")
	if err != nil {
		t.Fatalf("LoadFrom() should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadFrom() should return default config for non-existent file")
	}
	if !cfg.Output.Color {
		t.Error("expected default Color to be true")
	}
}
