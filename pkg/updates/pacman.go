package updates

import (
	"context"
	"errors"
	"path"
	"sort"

	"archupdates/internal/logger"
	"archupdates/pkg/pacman"
	"archupdates/pkg/vercmp"
)

// SyncDatabase is the private sync database cache. *pacman.SyncCache
// satisfies it.
type SyncDatabase interface {
	Refresh(ctx context.Context) error
	Snapshot(ctx context.Context) (map[string]pacman.SyncEntry, error)
}

// PacmanChecker finds official repository packages with newer candidates in
// the sync database cache.
type PacmanChecker struct {
	cache SyncDatabase
}

// NewPacmanChecker creates a PacmanChecker.
func NewPacmanChecker(cache SyncDatabase) *PacmanChecker {
	return &PacmanChecker{cache: cache}
}

// Check compares installed against the cache. When refresh is set the
// cache is refreshed first; if that fails but an earlier snapshot is still
// readable, the updates are computed from it and stale is true.
func (c *PacmanChecker) Check(ctx context.Context, installed []pacman.InstalledPackage, ignored *IgnoreList, refresh bool) (updates []PacmanUpdate, stale bool, err error) {
	var refreshErr error
	if refresh {
		refreshErr = c.cache.Refresh(ctx)
		if refreshErr != nil {
			if ctx.Err() != nil {
				return nil, false, refreshErr
			}
			logger.Warn("sync database refresh failed: %v", refreshErr)
		}
	}

	snapshot, err := c.cache.Snapshot(ctx)
	if err != nil {
		if refreshErr != nil {
			if errors.Is(err, pacman.ErrNoSnapshot) {
				return nil, false, refreshErr
			}
			return nil, false, errors.Join(refreshErr, err)
		}
		return nil, false, err
	}

	return ComparePacman(installed, snapshot, ignored), refreshErr != nil, nil
}

// ComparePacman returns, sorted by name, the installed repository packages
// whose sync candidate is newer. Updates carry the repository the package
// was installed from. Packages missing from snapshot are skipped.
func ComparePacman(installed []pacman.InstalledPackage, snapshot map[string]pacman.SyncEntry, ignored *IgnoreList) []PacmanUpdate {
	var updates []PacmanUpdate
	for _, pkg := range installed {
		if pkg.Foreign || ignored.Match(pkg.Name) {
			continue
		}
		candidate, ok := snapshot[pkg.Name]
		if !ok {
			continue
		}
		if !vercmp.Newer(candidate.Version, pkg.Version) {
			continue
		}
		repo := pkg.Origin
		if repo == "" {
			repo = candidate.Repository
		}
		updates = append(updates, PacmanUpdate{
			Name:             pkg.Name,
			InstalledVersion: pkg.Version,
			CandidateVersion: candidate.Version,
			Repository:       repo,
			Explicit:         pkg.Reason == pacman.ReasonExplicit,
		})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}

// IgnoreList matches package names against IgnorePkg style glob patterns.
// A nil list matches nothing.
type IgnoreList struct {
	patterns []string
}

// NewIgnoreList combines pattern lists, dropping empty entries.
func NewIgnoreList(lists ...[]string) *IgnoreList {
	l := &IgnoreList{}
	for _, list := range lists {
		for _, p := range list {
			if p != "" {
				l.patterns = append(l.patterns, p)
			}
		}
	}
	return l
}

// Match reports whether name is ignored.
func (l *IgnoreList) Match(name string) bool {
	if l == nil {
		return false
	}
	for _, p := range l.patterns {
		if p == name {
			return true
		}
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

