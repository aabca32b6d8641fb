// Package vcs parses VCS source entries from build recipes and resolves the
// current upstream reference of a remote repository.
package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a version control system.
type Kind string

const (
	Git       Kind = "git"
	SVN       Kind = "svn"
	Mercurial Kind = "hg"
	Bazaar    Kind = "bzr"
	CVS       Kind = "cvs"
	Darcs     Kind = "darcs"
	Fossil    Kind = "fossil"
)

var (
	// ErrNotVCS is returned for source entries that are plain downloads or
	// local files.
	ErrNotVCS = errors.New("not a VCS source")

	// ErrPinned is returned for sources fixed to a commit, tag or revision;
	// they never move, so there is nothing to track.
	ErrPinned = errors.New("source is pinned to a fixed revision")

	// ErrUnsupported is returned for VCS kinds without a remote resolver.
	ErrUnsupported = errors.New("unsupported VCS")
)

// Source is a parsed VCS source entry.
type Source struct {
	Kind   Kind
	Remote string // URL handed to the VCS client
	Branch string // empty means the remote default
}

// KindFromSuffix guesses the VCS from a devel package name suffix such as
// "-git". It returns "" when no suffix matches.
func KindFromSuffix(pkgname string) Kind {
	lower := strings.ToLower(pkgname)
	for _, k := range []Kind{Git, SVN, Mercurial, Bazaar, CVS, Darcs, Fossil} {
		if strings.HasSuffix(lower, "-"+string(k)) {
			return k
		}
	}
	return ""
}

// ParseSource parses a makepkg source entry such as
// "name::git+https://host/repo.git#branch=main".
func ParseSource(entry string) (Source, error) {
	// Drop the optional "folder::" rename prefix.
	if i := strings.Index(entry, "::"); i >= 0 {
		entry = entry[i+2:]
	}

	scheme, rest, ok := strings.Cut(entry, "://")
	if !ok || scheme == "" {
		return Source{}, ErrNotVCS
	}

	kind, transport := splitScheme(scheme)
	if kind == "" {
		return Source{}, ErrNotVCS
	}

	remote, fragment, _ := strings.Cut(rest, "#")
	remote, _, _ = strings.Cut(remote, "?")
	fragment, _, _ = strings.Cut(fragment, "?")

	src := Source{
		Kind:   kind,
		Remote: transport + "://" + remote,
	}

	if fragment != "" {
		fragType, value, _ := strings.Cut(fragment, "=")
		switch fragType {
		case "commit", "tag", "revision":
			return Source{}, fmt.Errorf("%s: %w", fragment, ErrPinned)
		case "branch":
			src.Branch = value
		}
	}

	return src, nil
}

// splitScheme maps "git+https" to (git, https) and "git" to (git, git).
// Schemes without a VCS name yield an empty kind.
func splitScheme(scheme string) (Kind, string) {
	vcsName, transport, hasPlus := strings.Cut(scheme, "+")
	if !hasPlus {
		// Only git and svn have their own URL schemes.
		switch scheme {
		case "git":
			return Git, "git"
		case "svn":
			return SVN, "svn"
		}
		return "", ""
	}

	switch Kind(vcsName) {
	case Git, SVN, Mercurial, Bazaar, Fossil:
		return Kind(vcsName), transport
	}
	return "", ""
}

// FirstSource returns the first VCS source among entries. Only one source is
// tracked per package; further VCS sources are ignored.
func FirstSource(entries []string) (Source, error) {
	pinned := false
	for _, entry := range entries {
		src, err := ParseSource(entry)
		if err == nil {
			return src, nil
		}
		if errors.Is(err, ErrPinned) {
			pinned = true
		}
	}
	if pinned {
		return Source{}, ErrPinned
	}
	return Source{}, ErrNotVCS
}
