// Package config loads the archupdates TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"archupdates/internal/logger"
	"archupdates/pkg/pacman"
)

// Config represents the complete archupdates configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Output  OutputConfig  `toml:"output"`
	Pacman  PacmanConfig  `toml:"pacman"`
	AUR     AURConfig     `toml:"aur"`
	Devel   DevelConfig   `toml:"devel"`
	News    NewsConfig    `toml:"news"`
}

// GeneralConfig contains check scheduling and filtering settings.
type GeneralConfig struct {
	// IntervalSecs is how often local state is compared with the remote data
	// held in memory.
	IntervalSecs int `toml:"interval_secs"`

	// TimeoutSecs bounds each update source of a check.
	TimeoutSecs int `toml:"timeout_secs"`

	// OnlineCheckPeriod is the number of intervals between online checks.
	// The first interval is always online.
	OnlineCheckPeriod int `toml:"online_check_period"`

	// Arch overrides the architecture used for recipe sources.
	Arch string `toml:"arch"`

	// Ignore lists extra package patterns to leave out, on top of IgnorePkg.
	Ignore []string `toml:"ignore"`

	// Sources selects the update sources to check: pacman, aur, devel, news.
	Sources []string `toml:"sources"`

	// ExcludeFromCounter lists sources left out of the update count.
	ExcludeFromCounter []string `toml:"exclude_from_counter"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	// Color enables colored output (respects NO_COLOR env var).
	Color bool `toml:"color"`

	// Unicode enables unicode symbols in output.
	Unicode bool `toml:"unicode"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// Format is the default output format: text, json or yaml.
	Format string `toml:"format"`
}

// PacmanConfig contains the local package database settings.
type PacmanConfig struct {
	Binary         string `toml:"binary"`
	ConfBinary     string `toml:"conf_binary"`
	FakerootBinary string `toml:"fakeroot_binary"`
	DBPath         string `toml:"dbpath"`
	LogPath        string `toml:"log_path"`

	// CacheDir overrides the private sync database directory.
	CacheDir string `toml:"cache_dir"`

	// CoalesceWindowSecs skips a sync refresh when another one finished
	// this recently.
	CoalesceWindowSecs int `toml:"coalesce_window_secs"`

	// RepoURLs maps unofficial repositories to package page templates
	// containing {pkgname}.
	RepoURLs map[string]string `toml:"repo_urls"`
}

// AURConfig contains the AUR endpoints and request policy.
type AURConfig struct {
	RPCURL           string `toml:"rpc_url"`
	SRCINFOURL       string `toml:"srcinfo_url"`
	BatchSize        int    `toml:"batch_size"`
	MaxRetries       int    `toml:"max_retries"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int    `toml:"retry_max_delay_ms"`
	HTTPTimeoutSecs  int    `toml:"http_timeout_secs"`
}

// DevelConfig contains devel package settings.
type DevelConfig struct {
	// Suffixes marks package names as devel packages.
	Suffixes []string `toml:"suffixes"`

	// Concurrency bounds parallel recipe fetches and VCS queries.
	Concurrency int `toml:"concurrency"`

	// Binaries overrides VCS client paths, keyed by git, hg, svn or bzr.
	Binaries map[string]string `toml:"binaries"`
}

// NewsConfig contains news feed settings.
type NewsConfig struct {
	URL string `toml:"url"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			IntervalSecs:      6,
			TimeoutSecs:       120,
			OnlineCheckPeriod: 600,
			Sources:           []string{"pacman", "aur", "devel", "news"},
		},
		Output: OutputConfig{
			Color:   true,
			Unicode: true,
			Format:  "text",
		},
		Pacman: PacmanConfig{
			Binary:             "pacman",
			ConfBinary:         "pacman-conf",
			FakerootBinary:     "fakeroot",
			DBPath:             "/var/lib/pacman",
			LogPath:            "/var/log/pacman.log",
			CoalesceWindowSecs: 30,
			RepoURLs:           map[string]string{},
		},
		AUR: AURConfig{
			RPCURL:           "https://aur.archlinux.org/rpc/v5",
			SRCINFOURL:       "https://aur.archlinux.org/cgit/aur.git/plain/.SRCINFO",
			BatchSize:        150,
			MaxRetries:       3,
			RetryBaseDelayMS: 500,
			RetryMaxDelayMS:  4000,
			HTTPTimeoutSecs:  30,
		},
		Devel: DevelConfig{
			Suffixes:    []string{"-git", "-svn", "-hg", "-bzr", "-cvs", "-darcs"},
			Concurrency: 8,
			Binaries:    map[string]string{},
		},
		News: NewsConfig{
			URL: "https://archlinux.org/feeds/news/",
		},
	}
}

// Load loads the configuration from the default path.
// If the config file doesn't exist, it returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the configuration from a specific path.
// If the config file doesn't exist, it returns the default configuration.
// Unknown keys are reported as warnings.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		logger.Warn("unknown configuration key %q in %s", key.String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

var validSources = map[string]bool{"pacman": true, "aur": true, "devel": true, "news": true}

// Validate checks value ranges and source names.
func (c *Config) Validate() error {
	var errs []error
	if c.General.IntervalSecs <= 0 {
		errs = append(errs, errors.New("general.interval_secs must be positive"))
	}
	if c.General.TimeoutSecs <= 0 {
		errs = append(errs, errors.New("general.timeout_secs must be positive"))
	}
	if c.General.OnlineCheckPeriod <= 0 {
		errs = append(errs, errors.New("general.online_check_period must be positive"))
	}
	for _, list := range [][]string{c.General.Sources, c.General.ExcludeFromCounter} {
		for _, s := range list {
			if !validSources[strings.ToLower(s)] {
				errs = append(errs, fmt.Errorf("unknown source %q", s))
			}
		}
	}
	switch c.Output.Format {
	case "", "text", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format must be text, json or yaml, not %q", c.Output.Format))
	}
	if c.AUR.BatchSize <= 0 {
		errs = append(errs, errors.New("aur.batch_size must be positive"))
	}
	if c.AUR.MaxRetries < 0 {
		errs = append(errs, errors.New("aur.max_retries must not be negative"))
	}
	if c.Pacman.CoalesceWindowSecs < 0 {
		errs = append(errs, errors.New("pacman.coalesce_window_secs must not be negative"))
	}
	if err := pacman.CheckCacheDir(c.SyncCacheDir(), c.Pacman.DBPath); err != nil {
		errs = append(errs, fmt.Errorf("pacman.cache_dir: %w", err))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Interval returns the offline check interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.General.IntervalSecs) * time.Second
}

// Timeout returns the per-source timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.General.TimeoutSecs) * time.Second
}

// CoalesceWindow returns the sync refresh coalescing window.
func (c *Config) CoalesceWindow() time.Duration {
	return time.Duration(c.Pacman.CoalesceWindowSecs) * time.Second
}

// SyncCacheDir returns the private sync database directory.
func (c *Config) SyncCacheDir() string {
	if c.Pacman.CacheDir != "" {
		return c.Pacman.CacheDir
	}
	return SyncDBPath()
}

// ShouldUseColor returns true if colored output should be used.
// Respects the NO_COLOR environment variable.
func (c *Config) ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return c.Output.Color
}
