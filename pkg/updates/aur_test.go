package updates

import (
	"context"
	"errors"
	"testing"

	"archupdates/pkg/aur"
	"archupdates/pkg/pacman"
)

func TestAURFetchQueriesForeignNonDevel(t *testing.T) {
	client := &fakeAUR{pkgs: map[string]aur.Package{
		"x": {Name: "x", PackageBase: "x", Version: "2.0-1"},
	}}
	installed := []pacman.InstalledPackage{
		repoPkg("glibc", "2.41-1", "core"),
		explicitPkg(foreignPkg("x", "1.0-1")),
		foreignPkg("y", "1.0-1"),
		foreignPkg("bar-git", "r1.abcdef1-1"),
	}

	remote, err := NewAURChecker(client).Fetch(context.Background(), installed)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(client.queried) != 1 {
		t.Fatalf("expected one query, got %d", len(client.queried))
	}
	if q := client.queried[0]; len(q) != 2 || q[0] != "x" || q[1] != "y" {
		t.Errorf("queried %v, want [x y]", q)
	}
	if len(remote) != 1 || remote["x"].Version != "2.0-1" {
		t.Errorf("remote = %+v", remote)
	}
}

func TestAURFetchNothingToQuery(t *testing.T) {
	client := &fakeAUR{}
	remote, err := NewAURChecker(client).Fetch(context.Background(),
		[]pacman.InstalledPackage{repoPkg("glibc", "2.41-1", "core")})
	if err != nil || len(remote) != 0 {
		t.Fatalf("Fetch() = %v, %v", remote, err)
	}
	if len(client.queried) != 0 {
		t.Error("no query expected without foreign packages")
	}
}

func TestAURFetchFailure(t *testing.T) {
	client := &fakeAUR{infoErr: aur.ErrMaxRetriesExceeded}
	_, err := NewAURChecker(client).Fetch(context.Background(),
		[]pacman.InstalledPackage{foreignPkg("x", "1.0-1")})
	if !errors.Is(err, aur.ErrMaxRetriesExceeded) {
		t.Errorf("expected retries error, got %v", err)
	}
}

func TestCompareAUR(t *testing.T) {
	installed := []pacman.InstalledPackage{
		explicitPkg(foreignPkg("x", "1.0-1")),
		foreignPkg("y", "1.0-1"),
		foreignPkg("same", "3.1-2"),
		foreignPkg("newer-local", "2.0-1"),
		foreignPkg("flagged", "0.9-1"),
		foreignPkg("held", "1.0-1"),
		foreignPkg("bar-git", "r1.abcdef1-1"),
	}
	remote := map[string]AURRemote{
		"x":           {Version: "1.1-1"},
		"same":        {Version: "3.1-2"},
		"newer-local": {Version: "1.9-1"},
		"flagged":     {Version: "1.0-1", OutOfDate: true},
		"held":        {Version: "2.0-1"},
		"bar-git":     {Version: "r9.1234567-1"},
	}

	got := CompareAUR(installed, remote, NewIgnoreList([]string{"held"}))

	want := []AURUpdate{
		{Name: "flagged", InstalledVersion: "0.9-1", CandidateVersion: "1.0-1", OutOfDate: true},
		{Name: "x", InstalledVersion: "1.0-1", CandidateVersion: "1.1-1", Explicit: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("update[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
