// Package monitor reports changes to the local package state, so a watcher
// can recheck updates right after a pacman transaction instead of waiting
// for the next interval.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"archupdates/internal/logger"
)

// DefaultDebounce groups the many events of one transaction.
const DefaultDebounce = 2 * time.Second

// ErrNothingToWatch is returned when none of the paths exist.
var ErrNothingToWatch = errors.New("no watchable paths")

// Target is a path to watch. A directory reports changes to any entry; a
// file is watched through its parent directory so log rotation is seen.
type Target struct {
	Path string
}

// Monitor watches targets and emits one signal per burst of changes.
type Monitor struct {
	targets  []Target
	debounce time.Duration
}

// New creates a Monitor. A non-positive debounce selects DefaultDebounce.
func New(debounce time.Duration, paths ...string) *Monitor {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	targets := make([]Target, len(paths))
	for i, p := range paths {
		targets[i] = Target{Path: filepath.Clean(p)}
	}
	return &Monitor{targets: targets, debounce: debounce}
}

// Watch starts watching. The returned channel receives a value after each
// quiet period following changes and is closed when ctx is done. Missing
// paths are skipped; if none can be watched, Watch fails.
func (m *Monitor) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// files maps a watched parent directory to the names of interest in it;
	// a nil set means every entry counts.
	files := make(map[string]map[string]bool)
	for _, t := range m.targets {
		info, err := os.Stat(t.Path)
		if err != nil {
			logger.Debug("not watching %s: %v", t.Path, err)
			continue
		}
		dir, name := t.Path, ""
		if !info.IsDir() {
			dir, name = filepath.Dir(t.Path), filepath.Base(t.Path)
		}
		names, seen := files[dir]
		switch {
		case !seen && name != "":
			files[dir] = map[string]bool{name: true}
		case !seen:
			files[dir] = nil
		case name != "" && names != nil:
			names[name] = true
		case name == "":
			files[dir] = nil
		}
	}

	added := 0
	for dir := range files {
		if err := w.Add(dir); err != nil {
			logger.Debug("not watching %s: %v", dir, err)
			continue
		}
		added++
	}
	if added == 0 {
		w.Close()
		return nil, ErrNothingToWatch
	}

	out := make(chan struct{}, 1)
	go m.loop(ctx, w, files, out)
	return out, nil
}

func (m *Monitor) loop(ctx context.Context, w *fsnotify.Watcher, files map[string]map[string]bool, out chan<- struct{}) {
	defer close(out)
	defer w.Close()

	timer := time.NewTimer(m.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !relevant(files, ev.Name) {
				continue
			}
			timer.Reset(m.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Debug("file watcher error: %v", err)
		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

func relevant(files map[string]map[string]bool, path string) bool {
	names, ok := files[filepath.Dir(path)]
	if !ok {
		return false
	}
	return names == nil || names[filepath.Base(path)]
}
