package cli

import (
	"context"
	"runtime"
	"strings"
	"time"

	"archupdates/internal/config"
	"archupdates/internal/logger"
	"archupdates/internal/state"
	"archupdates/internal/ui"
	"archupdates/pkg/aur"
	"archupdates/pkg/detector"
	"archupdates/pkg/news"
	"archupdates/pkg/pacman"
	"archupdates/pkg/updates"
	"archupdates/pkg/vcs"
)

// stateLockTimeout bounds the wait for another process holding the state
// database.
const stateLockTimeout = 5 * time.Second

// services holds the clients a command works with, built from cfg.
type services struct {
	local    *pacman.LocalDB
	cache    *pacman.SyncCache
	aur      *aur.Client
	resolver *vcs.Resolver
	feed     *news.Client
	state    *state.Shared

	arch    string
	sources []updates.Source
	exclude []updates.Source
}

// newServices wires the clients. sourceNames overrides the configured
// sources when not empty.
func newServices(ctx context.Context, sourceNames []string) (*services, error) {
	if len(sourceNames) == 0 {
		sourceNames = cfg.General.Sources
	}
	sources, err := updates.ParseSources(sourceNames)
	if err != nil {
		return nil, err
	}
	exclude, err := updates.ParseSources(cfg.General.ExcludeFromCounter)
	if err != nil {
		return nil, err
	}

	s := &services{
		local: pacman.NewLocalDB(nil, pacman.Options{
			Binary:        cfg.Pacman.Binary,
			ConfBinary:    cfg.Pacman.ConfBinary,
			DBPath:        cfg.Pacman.DBPath,
			DevelSuffixes: cfg.Devel.Suffixes,
		}),
		cache: pacman.NewSyncCache(nil, pacman.CacheOptions{
			Dir:            cfg.SyncCacheDir(),
			SystemDBPath:   cfg.Pacman.DBPath,
			Binary:         cfg.Pacman.Binary,
			FakerootBinary: cfg.Pacman.FakerootBinary,
			CoalesceWindow: cfg.CoalesceWindow(),
		}),
		aur:      newAURClient(cfg.AUR),
		resolver: vcs.NewResolver(nil),
		feed:     news.NewClient(cfg.News.URL, time.Duration(cfg.AUR.HTTPTimeoutSecs)*time.Second),
		state:    state.NewShared(config.StatePath(), stateLockTimeout),
		sources:  sources,
		exclude:  exclude,
	}
	for name, path := range cfg.Devel.Binaries {
		s.resolver.SetBinary(vcs.Kind(strings.ToLower(name)), path)
	}
	s.arch = s.resolveArch(ctx)
	return s, nil
}

func newAURClient(c config.AURConfig) *aur.Client {
	return aur.NewClientWithOptions(aur.Options{
		BaseURL:    c.RPCURL,
		SRCINFOURL: c.SRCINFOURL,
		Timeout:    time.Duration(c.HTTPTimeoutSecs) * time.Second,
		BatchSize:  c.BatchSize,
		Retry: &aur.RetryConfig{
			MaxRetries: c.MaxRetries,
			BaseDelay:  time.Duration(c.RetryBaseDelayMS) * time.Millisecond,
			MaxDelay:   time.Duration(c.RetryMaxDelayMS) * time.Millisecond,
		},
	})
}

// resolveArch picks the architecture for recipe sources: the configured
// value, then pacman.conf, then the machine's.
func (s *services) resolveArch(ctx context.Context) string {
	if cfg.General.Arch != "" {
		return cfg.General.Arch
	}
	arches, err := s.local.Architecture(ctx)
	if err != nil {
		logger.Debug("falling back to the machine architecture: %v", err)
	}
	for _, arch := range arches {
		if arch != "" && arch != "auto" {
			return arch
		}
	}
	return detector.PacmanArch(runtime.GOARCH)
}

// checker builds a Checker over the selected sources.
func (s *services) checker() *updates.Checker {
	return updates.New(updates.Options{
		Local:            s.local,
		Cache:            s.cache,
		AUR:              s.aur,
		Resolver:         s.resolver,
		Feed:             s.feed,
		Store:            s.state,
		Arch:             s.arch,
		Ignore:           cfg.General.Ignore,
		DevelConcurrency: cfg.Devel.Concurrency,
		Timeout:          cfg.Timeout(),
		Sources:          s.sources,
	})
}

// newsSince returns the current news cutoff.
func (s *services) newsSince() time.Time {
	return updates.NewsSince(updates.SinceSources{
		LastUpgrade: func() (time.Time, error) { return pacman.LastFullUpgrade(cfg.Pacman.LogPath) },
		LastRead:    s.state.NewsLastRead,
	})
}

func (s *services) links() ui.Links {
	return ui.Links{Arch: s.arch, RepoURLs: cfg.Pacman.RepoURLs}
}

// saveSnapshot records snap as the last check result.
func (s *services) saveSnapshot(snap *updates.Snapshot) {
	if err := s.state.SaveSnapshot(snap); err != nil {
		logger.Warn("failed to save check result: %v", err)
	}
}

// outputFormat resolves the --format flag against the configured default.
func outputFormat(flag string) (ui.Format, error) {
	if flag == "" {
		flag = cfg.Output.Format
	}
	return ui.ParseFormat(flag)
}
