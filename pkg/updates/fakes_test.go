package updates

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"archupdates/pkg/aur"
	"archupdates/pkg/news"
	"archupdates/pkg/pacman"
	"archupdates/pkg/vcs"
)

type fakeLocal struct {
	pkgs    []pacman.InstalledPackage
	ignored []string
	err     error
}

func (f *fakeLocal) Installed(ctx context.Context) ([]pacman.InstalledPackage, error) {
	return f.pkgs, f.err
}

func (f *fakeLocal) IgnoredPackages(ctx context.Context) ([]string, error) {
	return f.ignored, nil
}

type fakeCache struct {
	entries    map[string]pacman.SyncEntry
	refreshErr error
	snapErr    error
	refreshes  atomic.Int32
}

func (f *fakeCache) Refresh(ctx context.Context) error {
	f.refreshes.Add(1)
	return f.refreshErr
}

func (f *fakeCache) Snapshot(ctx context.Context) (map[string]pacman.SyncEntry, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.entries, nil
}

type fakeAUR struct {
	mu       sync.Mutex
	pkgs     map[string]aur.Package
	infoErr  error
	recipes  map[string]*aur.SRCINFO
	fetchErr error
	queried  [][]string
	fetched  []string
}

func (f *fakeAUR) Info(ctx context.Context, names ...string) ([]aur.Package, error) {
	f.mu.Lock()
	f.queried = append(f.queried, names)
	f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	var out []aur.Package
	for _, name := range names {
		if p, ok := f.pkgs[name]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAUR) FetchSRCINFO(ctx context.Context, pkgbase string) (*aur.SRCINFO, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, pkgbase)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	info, ok := f.recipes[pkgbase]
	if !ok {
		return nil, aur.ErrNotFound
	}
	return info, nil
}

func recipe(base string, sources ...string) *aur.SRCINFO {
	info := &aur.SRCINFO{PkgBase: base, PkgVer: "r1.0000000", PkgRel: "1"}
	for _, s := range sources {
		info.Source = append(info.Source, aur.ArchValue{Value: s})
	}
	return info
}

type fakeResolver struct {
	refs  map[string]string
	errs  map[string]error
	delay time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeResolver) Resolve(ctx context.Context, src vcs.Source) (string, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.errs[src.Remote]; err != nil {
		return "", err
	}
	return f.refs[src.Remote], nil
}

type fakeFeed struct {
	items []news.Item
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]news.Item, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items, f.err
}

type memStore struct {
	mu   sync.Mutex
	data *RemoteData
}

func (m *memStore) LoadRemote() (*RemoteData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	cp := *m.data
	return &cp, nil
}

func (m *memStore) SaveRemote(data *RemoteData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *data
	m.data = &cp
	return nil
}

func repoPkg(name, version, repo string) pacman.InstalledPackage {
	return pacman.InstalledPackage{Name: name, Version: version, Origin: repo}
}

func foreignPkg(name, version string) pacman.InstalledPackage {
	return pacman.InstalledPackage{
		Name:    name,
		Version: version,
		Foreign: true,
		Origin:  pacman.OriginForeign,
		Devel:   pacman.IsDevel(name, pacman.DefaultDevelSuffixes),
	}
}

func explicitPkg(pkg pacman.InstalledPackage) pacman.InstalledPackage {
	pkg.Reason = pacman.ReasonExplicit
	return pkg
}
