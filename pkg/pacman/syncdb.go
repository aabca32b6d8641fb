package pacman

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"archupdates/internal/executor"
	"archupdates/internal/logger"
)

const (
	lockFileName      = ".lock"
	lastRefreshName   = "last_refresh"
	pacmanLockName    = "db.lck"
	DefaultCoalescing = 30 * time.Second
)

// SyncEntry is one package listed in a sync database.
type SyncEntry struct {
	Repository string
	Name       string
	Version    string
}

// CacheOptions configures a SyncCache.
type CacheOptions struct {
	// Dir is the private pacman dbpath. Sync databases live in Dir/sync.
	Dir string
	// SystemDBPath is the system dbpath whose local database is linked in and
	// whose sync databases seed an empty cache.
	SystemDBPath   string
	Binary         string // pacman
	FakerootBinary string // fakeroot; empty runs pacman directly
	// CoalesceWindow skips a refresh when another one finished this recently.
	CoalesceWindow time.Duration
}

// SyncCache owns a private copy of the sync databases that can be refreshed
// without root and without touching the system databases.
//
// Refreshes take an exclusive flock on Dir/.lock and snapshots a shared one,
// so any number of processes may use the same directory.
type SyncCache struct {
	runner Runner
	opts   CacheOptions
	sem    chan struct{}
	now    func() time.Time
}

// NewSyncCache creates a SyncCache. A nil runner uses a default executor.
func NewSyncCache(runner Runner, opts CacheOptions) *SyncCache {
	if runner == nil {
		runner = executor.New(false)
	}
	if opts.SystemDBPath == "" {
		opts.SystemDBPath = DefaultDBPath
	}
	if opts.Binary == "" {
		opts.Binary = "pacman"
	}
	if opts.CoalesceWindow < 0 {
		opts.CoalesceWindow = 0
	}
	return &SyncCache{
		runner: runner,
		opts:   opts,
		sem:    make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Dir returns the private dbpath.
func (c *SyncCache) Dir() string {
	return c.opts.Dir
}

// Refresh downloads fresh sync databases into the private dbpath. When
// another caller refreshed within the coalesce window, it returns without
// running pacman. A failed refresh leaves the previous databases in place.
func (c *SyncCache) Refresh(ctx context.Context) error {
	if err := CheckCacheDir(c.opts.Dir, c.opts.SystemDBPath); err != nil {
		return err
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return lockWaitError(ctx)
	}
	defer func() { <-c.sem }()

	if err := os.MkdirAll(c.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create sync cache directory: %w", err)
	}

	lock, err := acquireLock(ctx, c.lockPath(), true)
	if err != nil {
		return err
	}
	defer lock.release()

	last, err := c.readLastRefresh()
	if err != nil {
		logger.Debug("ignoring unreadable refresh timestamp: %v", err)
	}
	if !last.IsZero() && c.opts.CoalesceWindow > 0 {
		if age := c.now().Sub(last); age >= 0 && age < c.opts.CoalesceWindow {
			logger.Debug("sync cache refreshed %s ago, skipping", age.Round(time.Millisecond))
			return nil
		}
	}

	if err := c.prepare(); err != nil {
		return err
	}

	name, args := c.refreshCommand()
	if _, err := c.runner.Output(ctx, name, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("sync database refresh interrupted: %w", ctxErr)
		}
		return fmt.Errorf("failed to refresh sync databases: %w", classify(err))
	}

	if err := c.writeLastRefresh(c.now()); err != nil {
		return err
	}
	return nil
}

// Snapshot lists every package in the private sync databases. No network
// access happens. Packages present in several repositories resolve to the
// first one in pacman.conf order.
func (c *SyncCache) Snapshot(ctx context.Context) (map[string]SyncEntry, error) {
	if !c.populated() {
		return nil, ErrNoSnapshot
	}

	lock, err := acquireLock(ctx, c.lockPath(), false)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	out, err := c.runner.Output(ctx, c.opts.Binary, "-Sl", "--dbpath", c.opts.Dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read sync cache: %w", classify(err))
	}
	return ParseSyncList(out), nil
}

// LastRefreshed returns when the cache was last successfully refreshed. The
// zero time means never.
func (c *SyncCache) LastRefreshed() (time.Time, error) {
	return c.readLastRefresh()
}

// CheckCacheDir returns ErrUnsafeCacheDir when dir is systemDBPath or a
// directory below it. Symlinks are resolved for the parts that exist.
func CheckCacheDir(dir, systemDBPath string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafeCacheDir)
	}
	if systemDBPath == "" {
		systemDBPath = DefaultDBPath
	}
	d, s := resolvePath(dir), resolvePath(systemDBPath)
	if rel, err := filepath.Rel(s, d); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is within %s", ErrUnsafeCacheDir, dir, systemDBPath)
	}
	return nil
}

func resolvePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return filepath.Clean(path)
}

// RefreshCommand returns the command line a refresh would run.
func (c *SyncCache) RefreshCommand() []string {
	name, args := c.refreshCommand()
	return append([]string{name}, args...)
}

func (c *SyncCache) refreshCommand() (string, []string) {
	args := []string{"-Sy", "--dbpath", c.opts.Dir, "--logfile", "/dev/null"}
	if c.opts.FakerootBinary == "" {
		return c.opts.Binary, args
	}
	return c.opts.FakerootBinary, append([]string{"--", c.opts.Binary}, args...)
}

func (c *SyncCache) lockPath() string {
	return filepath.Join(c.opts.Dir, lockFileName)
}

func (c *SyncCache) syncDir() string {
	return filepath.Join(c.opts.Dir, "sync")
}

func (c *SyncCache) populated() bool {
	matches, _ := filepath.Glob(filepath.Join(c.syncDir(), "*.db"))
	return len(matches) > 0
}

// prepare links the system local database, seeds empty sync databases from
// the system copy and clears a leftover pacman lock. It must run under the
// exclusive flock.
func (c *SyncCache) prepare() error {
	if err := os.MkdirAll(c.syncDir(), 0755); err != nil {
		return fmt.Errorf("failed to create sync directory: %w", err)
	}

	local := filepath.Join(c.opts.Dir, "local")
	target := filepath.Join(c.opts.SystemDBPath, "local")
	if err := linkLocal(local, target); err != nil {
		return err
	}

	if !c.populated() {
		if err := c.seed(); err != nil {
			logger.Debug("could not seed sync cache from system databases: %v", err)
		}
	}

	// Only this process runs pacman against Dir while the flock is held, so
	// an existing db.lck is left over from an interrupted run.
	stale := filepath.Join(c.opts.Dir, pacmanLockName)
	if err := os.Remove(stale); err == nil {
		logger.Debug("removed stale pacman lock %s", stale)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale pacman lock: %w", err)
	}
	return nil
}

// linkLocal points local at target. Only a symlink is ever replaced.
func linkLocal(local, target string) error {
	info, err := os.Lstat(local)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to inspect local database link: %w", err)
	case info.Mode()&os.ModeSymlink == 0:
		return fmt.Errorf("refusing to replace %s: not a symlink", local)
	default:
		if current, err := os.Readlink(local); err == nil && current == target {
			return nil
		}
		if err := os.Remove(local); err != nil {
			return fmt.Errorf("failed to remove local database link: %w", err)
		}
	}
	if err := os.Symlink(target, local); err != nil {
		return fmt.Errorf("failed to link local database: %w", err)
	}
	return nil
}

func (c *SyncCache) seed() error {
	matches, err := filepath.Glob(filepath.Join(c.opts.SystemDBPath, "sync", "*.db"))
	if err != nil {
		return err
	}
	for _, src := range matches {
		if err := copyFile(src, filepath.Join(c.syncDir(), filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

func (c *SyncCache) readLastRefresh() (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(c.opts.Dir, lastRefreshName))
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read refresh timestamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse refresh timestamp: %w", err)
	}
	return t, nil
}

func (c *SyncCache) writeLastRefresh(t time.Time) error {
	path := filepath.Join(c.opts.Dir, lastRefreshName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(t.UTC().Format(time.RFC3339Nano)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write refresh timestamp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write refresh timestamp: %w", err)
	}
	return nil
}

// ParseSyncList parses pacman -Sl output ("repo name version [installed]").
// The first repository listing a name wins.
func ParseSyncList(output string) map[string]SyncEntry {
	entries := make(map[string]SyncEntry)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		if _, seen := entries[fields[1]]; seen {
			continue
		}
		entries[fields[1]] = SyncEntry{
			Repository: fields[0],
			Name:       fields[1],
			Version:    fields[2],
		}
	}
	return entries
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst + ".tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(dst+".tmp", dst)
}
