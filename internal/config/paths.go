package config

import (
	"os"
	"path/filepath"
)

const (
	appName    = "archupdates"
	configFile = "config.toml"
	stateFile  = "state.db"
	syncDBDir  = "db"
)

// ConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory, honoring XDG_DATA_HOME.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// CacheDir returns the cache directory, honoring XDG_CACHE_HOME.
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func xdgDir(env string, fallback ...string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir() //nolint:errcheck
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), configFile)
}

// StatePath returns the full path to the state database.
func StatePath() string {
	return filepath.Join(DataDir(), stateFile)
}

// SyncDBPath returns the default private pacman dbpath.
func SyncDBPath() string {
	return filepath.Join(CacheDir(), syncDBDir)
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0755)
}
