package vcs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		out      string
		want     string
		wantArgs string
	}{
		{
			name:     "git head",
			src:      Source{Kind: Git, Remote: "https://example.org/a.git"},
			out:      "9a2b3c4d5e6f7081920a1b2c3d4e5f6071829304\tHEAD\n",
			want:     "9a2b3c4",
			wantArgs: "git ls-remote https://example.org/a.git HEAD",
		},
		{
			name:     "git branch",
			src:      Source{Kind: Git, Remote: "https://example.org/a.git", Branch: "main"},
			out:      "0123456789abcdef0123456789abcdef01234567\trefs/heads/main\n",
			want:     "0123456",
			wantArgs: "git ls-remote https://example.org/a.git main",
		},
		{
			name:     "hg",
			src:      Source{Kind: Mercurial, Remote: "https://hg.example.org/r", Branch: "stable"},
			out:      "a1b2c3d4e5f6\n",
			want:     "a1b2c3d",
			wantArgs: "hg identify --id -r stable https://hg.example.org/r",
		},
		{
			name:     "svn",
			src:      Source{Kind: SVN, Remote: "https://svn.example.org/trunk"},
			out:      "1234\n",
			want:     "1234",
			wantArgs: "svn info --show-item last-changed-revision https://svn.example.org/trunk",
		},
		{
			name:     "bzr",
			src:      Source{Kind: Bazaar, Remote: "lp://launchpad.net/p"},
			out:      "88\n",
			want:     "88",
			wantArgs: "bzr revno lp://launchpad.net/p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{out: tt.out}
			got, err := NewResolver(runner).Resolve(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %s, want %s", got, tt.want)
			}
			if args := strings.Join(runner.calls[0], " "); args != tt.wantArgs {
				t.Errorf("ran %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewResolver(&fakeRunner{}).Resolve(ctx, Source{Kind: CVS}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for cvs, got %v", err)
	}
	if _, err := NewResolver(&fakeRunner{}).Resolve(ctx, Source{Kind: Darcs}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for darcs, got %v", err)
	}

	boom := errors.New("exit status 128")
	if _, err := NewResolver(&fakeRunner{err: boom}).Resolve(ctx, Source{Kind: Git, Remote: "x"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped runner error, got %v", err)
	}

	if _, err := NewResolver(&fakeRunner{out: "\n"}).Resolve(ctx, Source{Kind: Git, Remote: "x"}); err == nil {
		t.Error("expected error for empty ls-remote output")
	}
	if _, err := NewResolver(&fakeRunner{out: "abc\tHEAD\n"}).Resolve(ctx, Source{Kind: Git, Remote: "x"}); err == nil {
		t.Error("expected error for a too-short reference")
	}
}

func TestSetBinary(t *testing.T) {
	runner := &fakeRunner{out: "0123456789abcdef\tHEAD\n"}
	r := NewResolver(runner)
	r.SetBinary(Git, "/usr/local/bin/git")

	if _, err := r.Resolve(context.Background(), Source{Kind: Git, Remote: "x"}); err != nil {
		t.Fatal(err)
	}
	if runner.calls[0][0] != "/usr/local/bin/git" {
		t.Errorf("used binary %s", runner.calls[0][0])
	}
}

func TestUpdateAvailable(t *testing.T) {
	tests := []struct {
		kind      Kind
		installed string
		ref       string
		want      bool
	}{
		{Git, "0.6.0.r12.g9a2b3c4", "9a2b3c4", false},
		{Git, "0.6.0.r12.g9a2b3c4", "1111111", true},
		{Git, "0.6.0.r12.g9a2b3c4d5e", "9a2b3c4", false},
		{Git, "2024.01.r3.abcdef1", "2024010", true},
		{Git, "20240101", "2024010", false},
		{Git, "20240101", "abcdef1", true},
		{SVN, "r1234", "1234", false},
		{SVN, "r1233", "1234", true},
		{SVN, "20240101.r99", "2024", true},
		{SVN, "20240101.r99", "99", false},
		{SVN, "1.2.r12", "1", true},
		{Bazaar, "3.1.r512", "51", true},
		{Bazaar, "3.1.r512", "512", false},
		{SVN, "1.0", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.installed+"/"+tt.ref, func(t *testing.T) {
			if got := UpdateAvailable(tt.kind, tt.installed, tt.ref); got != tt.want {
				t.Errorf("UpdateAvailable(%s, %s, %s) = %v, want %v", tt.kind, tt.installed, tt.ref, got, tt.want)
			}
		})
	}
}

func TestLocalRef(t *testing.T) {
	tests := []struct {
		kind   Kind
		pkgver string
		want   string
	}{
		{Git, "1.2.r45.gabc1234", "abc1234"},
		{Git, "r123.abcdef1", "abcdef1"},
		{Git, "0.9.0.r12.g0123456789ab", "0123456789ab"},
		{Git, "20240101", "20240101"},
		{Git, "1.0", "1.0"},
		{Mercurial, "r512.f00dbabe", "f00dbabe"},
		{SVN, "r1234", "1234"},
		{SVN, "2.0.r88", "88"},
		{Bazaar, "r7", "7"},
		{SVN, "1.0", "1.0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.pkgver, func(t *testing.T) {
			if got := LocalRef(tt.kind, tt.pkgver); got != tt.want {
				t.Errorf("LocalRef(%s, %q) = %q, want %q", tt.kind, tt.pkgver, got, tt.want)
			}
		})
	}
}
