package updates

import (
	"context"
	"sync"
	"time"

	"archupdates/internal/logger"
	"archupdates/pkg/news"
	"archupdates/pkg/pacman"
)

// DefaultTimeout bounds each source of a check cycle.
const DefaultTimeout = 120 * time.Second

// LocalPackages enumerates installed packages. *pacman.LocalDB satisfies it.
type LocalPackages interface {
	Installed(ctx context.Context) ([]pacman.InstalledPackage, error)
	IgnoredPackages(ctx context.Context) ([]string, error)
}

// Options wires a Checker. Local and Cache are required for the package
// sources, AUR for the AUR and devel sources, Resolver for devel and Feed for
// news; a source whose collaborators are missing is skipped.
type Options struct {
	Local    LocalPackages
	Cache    SyncDatabase
	AUR      AURClient
	Resolver RefResolver
	Feed     NewsFeed
	// Store persists remote data for offline checks across runs.
	Store RemoteStore

	// Arch selects architecture specific recipe sources.
	Arch string
	// Ignore holds extra IgnorePkg style patterns.
	Ignore           []string
	DevelConcurrency int
	// Timeout bounds each source. Zero selects DefaultTimeout.
	Timeout time.Duration
	// Sources restricts the check. Empty means all sources.
	Sources []Source
}

// Checker runs all update sources concurrently. It is safe for concurrent
// use; callers sharing a sync cache directory rely on its own locking.
type Checker struct {
	opts   Options
	pacman *PacmanChecker
	aur    *AURChecker
	devel  *DevelChecker
	remote *remoteCache
	now    func() time.Time
}

// New creates a Checker.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Checker{
		opts:   opts,
		remote: &remoteCache{store: opts.Store},
		now:    time.Now,
	}
	if opts.Cache != nil {
		c.pacman = NewPacmanChecker(opts.Cache)
	}
	if opts.AUR != nil {
		c.aur = NewAURChecker(opts.AUR)
		if opts.Resolver != nil {
			c.devel = NewDevelChecker(opts.AUR, opts.Resolver, opts.Arch, opts.DevelConcurrency)
		}
	}
	return c
}

// Refresh runs an online check: the sync cache is refreshed and the AUR,
// recipe sources and news feed are queried. News published after since is
// reported. Failures are embedded per source in the snapshot.
func (c *Checker) Refresh(ctx context.Context, since time.Time) Snapshot {
	return c.run(ctx, since, ModeOnline)
}

// RefreshOffline recomputes updates from freshly read local state and the
// remote data of the last online check, without network access.
func (c *Checker) RefreshOffline(ctx context.Context, since time.Time) Snapshot {
	return c.run(ctx, since, ModeOffline)
}

// installedSet is the local state shared by the package sources of one
// cycle. It is read-only once loaded.
type installedSet struct {
	once    sync.Once
	pkgs    []pacman.InstalledPackage
	ignored *IgnoreList
	err     error
	load    func() ([]pacman.InstalledPackage, *IgnoreList, error)
}

func (s *installedSet) get() ([]pacman.InstalledPackage, *IgnoreList, error) {
	s.once.Do(func() {
		s.pkgs, s.ignored, s.err = s.load()
	})
	return s.pkgs, s.ignored, s.err
}

func (c *Checker) run(ctx context.Context, since time.Time, mode Mode) Snapshot {
	snap := Snapshot{
		CheckedAt: c.now(),
		Mode:      mode,
		NewsSince: since,
		Pacman:    skipped[PacmanUpdate](),
		AUR:       skipped[AURUpdate](),
		Devel:     skipped[DevelUpdate](),
		News:      skipped[NewsItem](),
	}

	local := &installedSet{load: func() ([]pacman.InstalledPackage, *IgnoreList, error) {
		lctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		return c.loadInstalled(lctx)
	}}

	var wg sync.WaitGroup
	launch := func(src Source, fn func(ctx context.Context)) {
		if !c.enabled(src) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			fn(sctx)
		}()
	}

	if c.pacman != nil && c.opts.Local != nil {
		launch(SourcePacman, func(ctx context.Context) {
			snap.Pacman = c.checkPacman(ctx, local, mode)
		})
	}
	if c.aur != nil && c.opts.Local != nil {
		launch(SourceAUR, func(ctx context.Context) {
			snap.AUR = c.checkAUR(ctx, local, mode)
		})
	}
	if c.devel != nil && c.opts.Local != nil {
		launch(SourceDevel, func(ctx context.Context) {
			snap.Devel = c.checkDevel(ctx, local, mode)
		})
	}
	if c.opts.Feed != nil {
		launch(SourceNews, func(ctx context.Context) {
			snap.News = c.checkNews(ctx, since, mode)
		})
	}

	wg.Wait()

	for _, err := range snap.Errors() {
		logger.Debug("%s check failed: %v", err.Source, err)
	}
	return snap
}

func (c *Checker) enabled(src Source) bool {
	return len(c.opts.Sources) == 0 || containsSource(c.opts.Sources, src)
}

func (c *Checker) loadInstalled(ctx context.Context) ([]pacman.InstalledPackage, *IgnoreList, error) {
	pkgs, err := c.opts.Local.Installed(ctx)
	if err != nil {
		return nil, nil, err
	}
	conf, err := c.opts.Local.IgnoredPackages(ctx)
	if err != nil {
		logger.Warn("could not read IgnorePkg from pacman.conf: %v", err)
	}
	return pkgs, NewIgnoreList(conf, c.opts.Ignore), nil
}

func (c *Checker) checkPacman(ctx context.Context, local *installedSet, mode Mode) Result[PacmanUpdate] {
	installed, ignored, err := local.get()
	if err != nil {
		return fail[PacmanUpdate](SourcePacman, err)
	}
	items, stale, err := c.pacman.Check(ctx, installed, ignored, mode == ModeOnline)
	if err != nil {
		return fail[PacmanUpdate](SourcePacman, err)
	}
	res := succeed(items)
	res.Stale = stale
	return res
}

func (c *Checker) checkAUR(ctx context.Context, local *installedSet, mode Mode) Result[AURUpdate] {
	installed, ignored, err := local.get()
	if err != nil {
		return fail[AURUpdate](SourceAUR, err)
	}

	var remote map[string]AURRemote
	if mode == ModeOnline {
		remote, err = c.aur.Fetch(ctx, installed)
		if err != nil {
			return fail[AURUpdate](SourceAUR, err)
		}
		fetched := c.now()
		c.remote.update(func(d *RemoteData) {
			d.AUR = remote
			d.AURFetchedAt = fetched
		})
	} else {
		data := c.remote.get()
		if data.AURFetchedAt.IsZero() {
			return fail[AURUpdate](SourceAUR, ErrNoRemoteData)
		}
		remote = data.AUR
	}
	return succeed(CompareAUR(installed, remote, ignored))
}

func (c *Checker) checkDevel(ctx context.Context, local *installedSet, mode Mode) Result[DevelUpdate] {
	installed, ignored, err := local.get()
	if err != nil {
		return fail[DevelUpdate](SourceDevel, err)
	}

	var remote map[string]DevelRemote
	if mode == ModeOnline {
		remote, err = c.devel.Fetch(ctx, installed)
		if err != nil {
			return fail[DevelUpdate](SourceDevel, err)
		}
		fetched := c.now()
		c.remote.update(func(d *RemoteData) {
			d.Devel = remote
			d.DevelFetchedAt = fetched
		})
	} else {
		data := c.remote.get()
		if data.DevelFetchedAt.IsZero() {
			return fail[DevelUpdate](SourceDevel, ErrNoRemoteData)
		}
		remote = data.Devel
	}
	return succeed(CompareDevel(installed, remote, ignored))
}

func (c *Checker) checkNews(ctx context.Context, since time.Time, mode Mode) Result[NewsItem] {
	var items []news.Item
	if mode == ModeOnline {
		fetched, err := c.opts.Feed.Fetch(ctx)
		if err != nil {
			return fail[NewsItem](SourceNews, err)
		}
		items = fetched
		at := c.now()
		c.remote.update(func(d *RemoteData) {
			d.News = fetched
			d.NewsFetchedAt = at
		})
	} else {
		data := c.remote.get()
		if data.NewsFetchedAt.IsZero() {
			return fail[NewsItem](SourceNews, ErrNoRemoteData)
		}
		items = data.News
	}
	return succeed(news.Since(items, since))
}

// Remote returns the remote data held for offline checks.
func (c *Checker) Remote() RemoteData {
	return c.remote.get()
}
