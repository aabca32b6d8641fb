package updates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"archupdates/pkg/aur"
	"archupdates/pkg/news"
	"archupdates/pkg/pacman"
)

type fixture struct {
	local    *fakeLocal
	cache    *fakeCache
	aur      *fakeAUR
	resolver *fakeResolver
	feed     *fakeFeed
	store    *memStore
}

func newFixture() *fixture {
	return &fixture{
		local: &fakeLocal{pkgs: []pacman.InstalledPackage{
			repoPkg("foo", "1.0-1", "core"),
			repoPkg("baz", "2.0-1", "extra"),
			foreignPkg("x", "1.0-1"),
			foreignPkg("y", "1.0-1"),
			foreignPkg("bar-git", "r10.abcdef1-1"),
			foreignPkg("nothere-git", "r1.0a1b2c3-1"),
		}},
		cache: &fakeCache{entries: map[string]pacman.SyncEntry{
			"foo": {Repository: "core", Name: "foo", Version: "1.1-1"},
			"baz": {Repository: "extra", Name: "baz", Version: "2.0-1"},
		}},
		aur: &fakeAUR{
			pkgs: map[string]aur.Package{
				"x":       {Name: "x", PackageBase: "x", Version: "1.2-1"},
				"bar-git": {Name: "bar-git", PackageBase: "bar-git", Version: "r1.0000000-1"},
			},
			recipes: map[string]*aur.SRCINFO{
				"bar-git": recipe("bar-git", "git+https://example.org/bar.git"),
			},
		},
		resolver: &fakeResolver{refs: map[string]string{"https://example.org/bar.git": "1234567"}},
		feed: &fakeFeed{items: []news.Item{
			{Title: "newer", Published: time.Date(2025, 2, 3, 11, 24, 25, 0, time.UTC)},
			{Title: "older", Published: time.Date(2025, 1, 16, 7, 33, 43, 0, time.UTC)},
		}},
		store: &memStore{},
	}
}

func (f *fixture) checker(mod func(*Options)) *Checker {
	opts := Options{
		Local:    f.local,
		Cache:    f.cache,
		AUR:      f.aur,
		Resolver: f.resolver,
		Feed:     f.feed,
		Store:    f.store,
		Arch:     "x86_64",
		Timeout:  5 * time.Second,
	}
	if mod != nil {
		mod(&opts)
	}
	return New(opts)
}

var testSince = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func TestRefreshAllSources(t *testing.T) {
	f := newFixture()
	snap := f.checker(nil).Refresh(context.Background(), testSince)

	if snap.Mode != ModeOnline {
		t.Errorf("Mode = %s", snap.Mode)
	}
	if snap.HasErrors() {
		t.Fatalf("unexpected errors: %v", snap.Errors())
	}

	if len(snap.Pacman.Items) != 1 || snap.Pacman.Items[0] != (PacmanUpdate{
		Name: "foo", InstalledVersion: "1.0-1", CandidateVersion: "1.1-1", Repository: "core",
	}) {
		t.Errorf("pacman = %+v", snap.Pacman.Items)
	}
	if len(snap.AUR.Items) != 1 || snap.AUR.Items[0].Name != "x" {
		t.Errorf("aur = %+v", snap.AUR.Items)
	}
	if len(snap.Devel.Items) != 1 || !snap.Devel.Items[0].UpdateAvailable || snap.Devel.Items[0].InstalledRef != "abcdef1" {
		t.Errorf("devel = %+v", snap.Devel.Items)
	}
	if len(snap.News.Items) != 1 || snap.News.Items[0].Title != "newer" {
		t.Errorf("news = %+v", snap.News.Items)
	}
	if got := snap.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
	if got := snap.Total(SourceAUR, SourceDevel); got != 1 {
		t.Errorf("Total(aur, devel) = %d, want 1", got)
	}
}

func TestRefreshAURFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.aur.infoErr = aur.ErrMaxRetriesExceeded

	snap := f.checker(nil).Refresh(context.Background(), testSince)

	if snap.AUR.OK() {
		t.Fatal("AUR source should have failed")
	}
	if snap.AUR.Err.Kind != KindTransport || !snap.AUR.Err.Retryable() {
		t.Errorf("AUR error = %+v", snap.AUR.Err)
	}
	if snap.AUR.Items != nil {
		t.Error("failed result must not carry items")
	}
	if !snap.Pacman.OK() || !snap.Devel.OK() || !snap.News.OK() {
		t.Fatalf("other sources must succeed: %v", snap.Errors())
	}
	if len(snap.Devel.Items) != 1 {
		t.Errorf("devel must still resolve from recipes, got %+v", snap.Devel.Items)
	}
}

func TestRefreshLocalFailureSparesNews(t *testing.T) {
	f := newFixture()
	f.local.err = errors.New("pacman: command not found")

	snap := f.checker(nil).Refresh(context.Background(), testSince)

	for _, res := range []*Error{snap.Pacman.Err, snap.AUR.Err, snap.Devel.Err} {
		if res == nil {
			t.Fatal("package sources must fail when the local database cannot be read")
		}
	}
	if !snap.News.OK() || len(snap.News.Items) != 1 {
		t.Errorf("news = %+v", snap.News)
	}
}

func TestRefreshTimeoutAffectsOnlySlowSource(t *testing.T) {
	f := newFixture()
	f.feed.block = true

	snap := f.checker(func(o *Options) { o.Timeout = 50 * time.Millisecond }).Refresh(context.Background(), testSince)

	if snap.News.OK() || snap.News.Err.Kind != KindTimeout {
		t.Fatalf("news = %+v", snap.News)
	}
	if !snap.Pacman.OK() || !snap.AUR.OK() || !snap.Devel.OK() {
		t.Errorf("other sources must succeed: %v", snap.Errors())
	}
}

func TestRefreshSourceSelection(t *testing.T) {
	f := newFixture()
	snap := f.checker(func(o *Options) { o.Sources = []Source{SourceNews} }).Refresh(context.Background(), testSince)

	if !snap.Pacman.Skipped || !snap.AUR.Skipped || !snap.Devel.Skipped {
		t.Error("unselected sources must be skipped")
	}
	if f.cache.refreshes.Load() != 0 {
		t.Error("skipped pacman source must not refresh the cache")
	}
	if !snap.News.OK() {
		t.Errorf("news = %+v", snap.News)
	}
	if snap.HasErrors() {
		t.Error("skipped sources are not failures")
	}
}

func TestRefreshOfflineUsesStoredRemoteData(t *testing.T) {
	f := newFixture()
	online := f.checker(nil).Refresh(context.Background(), testSince)
	if online.HasErrors() {
		t.Fatal(online.Errors())
	}

	// The user upgraded x and bar-git since the online check.
	f.local.pkgs = []pacman.InstalledPackage{
		repoPkg("foo", "1.0-1", "core"),
		foreignPkg("x", "1.2-1"),
		foreignPkg("y", "1.0-1"),
		foreignPkg("bar-git", "r11.1234567-1"),
	}
	f.aur.infoErr = errors.New("network must not be used")
	f.feed.err = errors.New("network must not be used")
	refreshes := f.cache.refreshes.Load()
	feedCalls := f.feed.calls.Load()

	// A new checker sees the remote data only through the store.
	offline := f.checker(nil).RefreshOffline(context.Background(), testSince)

	if offline.Mode != ModeOffline {
		t.Errorf("Mode = %s", offline.Mode)
	}
	if offline.HasErrors() {
		t.Fatalf("unexpected errors: %v", offline.Errors())
	}
	if f.cache.refreshes.Load() != refreshes || f.feed.calls.Load() != feedCalls {
		t.Error("offline check must not touch the network")
	}
	if len(offline.Pacman.Items) != 1 {
		t.Errorf("pacman = %+v", offline.Pacman.Items)
	}
	if len(offline.AUR.Items) != 0 {
		t.Errorf("aur = %+v", offline.AUR.Items)
	}
	if len(offline.Devel.Items) != 1 || offline.Devel.Items[0].UpdateAvailable {
		t.Errorf("devel = %+v", offline.Devel.Items)
	}
	if len(offline.News.Items) != 1 {
		t.Errorf("news = %+v", offline.News.Items)
	}
}

func TestRefreshOfflineWithoutRemoteData(t *testing.T) {
	f := newFixture()
	snap := f.checker(nil).RefreshOffline(context.Background(), testSince)

	if !snap.Pacman.OK() {
		t.Errorf("pacman works offline from the sync cache: %v", snap.Pacman.Err)
	}
	for _, err := range []*Error{snap.AUR.Err, snap.Devel.Err, snap.News.Err} {
		if err == nil || err.Kind != KindNotFound || !errors.Is(err, ErrNoRemoteData) {
			t.Errorf("expected not found error, got %v", err)
		}
	}
}

func TestRefreshKeepsPreviousRemoteDataOnFailure(t *testing.T) {
	f := newFixture()
	c := f.checker(nil)
	c.Refresh(context.Background(), testSince)

	f.feed.err = errors.New("connection reset")
	snap := c.Refresh(context.Background(), testSince)
	if snap.News.OK() {
		t.Fatal("news should fail")
	}

	if got := len(c.Remote().News); got != 2 {
		t.Errorf("cached news = %d items, want 2", got)
	}
	if offline := c.RefreshOffline(context.Background(), testSince); !offline.News.OK() {
		t.Errorf("offline news should use the earlier fetch: %v", offline.News.Err)
	}
}

func TestRefreshConcurrentCallers(t *testing.T) {
	f := newFixture()
	c := f.checker(nil)

	var wg sync.WaitGroup
	snaps := make([]Snapshot, 6)
	for i := range snaps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				snaps[i] = c.Refresh(context.Background(), testSince)
			} else {
				snaps[i] = c.RefreshOffline(context.Background(), testSince)
			}
		}()
	}
	wg.Wait()

	for i, s := range snaps {
		if !s.Pacman.OK() || len(s.Pacman.Items) != 1 {
			t.Errorf("snapshot %d pacman = %+v", i, s.Pacman)
		}
	}
}

func TestSnapshotJSON(t *testing.T) {
	f := newFixture()
	f.aur.infoErr = aur.ErrMalformedResponse
	snap := f.checker(func(o *Options) { o.Sources = []Source{SourceAUR} }).Refresh(context.Background(), testSince)

	data, err := json.Marshal(&snap)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`"mode":"online"`, `"kind":"parse"`, `"source":"aur"`, `"skipped":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON %s lacks %s", out, want)
		}
	}
}
