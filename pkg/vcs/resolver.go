package vcs

import (
	"context"
	"fmt"
	"strings"

	"archupdates/internal/executor"
)

// ShortRefLength is the number of characters of a commit id that is compared
// against installed versions, matching the abbreviation makepkg's pkgver()
// recipes conventionally use.
const ShortRefLength = 7

// Runner executes an external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// Resolver asks remote repositories for their current head.
type Resolver struct {
	runner   Runner
	binaries map[Kind]string
}

// NewResolver creates a Resolver. A nil runner uses a default executor.
func NewResolver(runner Runner) *Resolver {
	if runner == nil {
		runner = executor.New(false)
	}
	return &Resolver{
		runner: runner,
		binaries: map[Kind]string{
			Git:       "git",
			SVN:       "svn",
			Mercurial: "hg",
			Bazaar:    "bzr",
		},
	}
}

// SetBinary overrides the client binary used for kind.
func (r *Resolver) SetBinary(kind Kind, path string) {
	r.binaries[kind] = path
}

// Resolve returns the short reference of the remote head of src: an
// abbreviated commit id for git and hg, a revision number for svn and bzr.
func (r *Resolver) Resolve(ctx context.Context, src Source) (string, error) {
	bin, ok := r.binaries[src.Kind]
	if !ok {
		return "", fmt.Errorf("%s: %w", src.Kind, ErrUnsupported)
	}

	var args []string
	switch src.Kind {
	case Git:
		ref := src.Branch
		if ref == "" {
			ref = "HEAD"
		}
		args = []string{"ls-remote", src.Remote, ref}
	case Mercurial:
		args = []string{"identify", "--id"}
		if src.Branch != "" {
			args = append(args, "-r", src.Branch)
		}
		args = append(args, src.Remote)
	case SVN:
		args = []string{"info", "--show-item", "last-changed-revision", src.Remote}
	case Bazaar:
		args = []string{"revno", src.Remote}
	}

	out, err := r.runner.Output(ctx, bin, args...)
	if err != nil {
		return "", fmt.Errorf("failed to query %s remote %s: %w", src.Kind, src.Remote, err)
	}

	ref := firstField(out)
	if ref == "" {
		return "", fmt.Errorf("no reference returned for %s", src.Remote)
	}

	switch src.Kind {
	case Git, Mercurial:
		if len(ref) < ShortRefLength {
			return "", fmt.Errorf("reference %q from %s is too short", ref, src.Remote)
		}
		return ref[:ShortRefLength], nil
	}
	return ref, nil
}

// UpdateAvailable reports whether the reference recorded in pkgver differs
// from the remote one. Revision based systems compare revision numbers for
// equality; commit based systems match the short remote id against the
// recorded commit. When pkgver records no recognizable reference the remote
// one is searched for in the whole string.
func UpdateAvailable(kind Kind, pkgver, remoteRef string) bool {
	if remoteRef == "" {
		return false
	}
	local := LocalRef(kind, pkgver)
	if local == pkgver {
		return !strings.Contains(pkgver, remoteRef)
	}
	switch kind {
	case SVN, Bazaar, CVS, Darcs:
		return local != remoteRef
	default:
		return !strings.HasPrefix(local, remoteRef) && !strings.HasPrefix(remoteRef, local)
	}
}

func firstField(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// LocalRef extracts the reference a devel package recorded in its pkgver at
// build time, such as "abc1234" from "1.2.r45.gabc1234" or "1234" from
// "r1234". The pkgver is returned unchanged when no reference can be told
// apart from the rest of the version.
func LocalRef(kind Kind, pkgver string) string {
	tokens := strings.FieldsFunc(pkgver, func(r rune) bool {
		return r == '.' || r == '_' || r == '+' || r == '~'
	})

	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		switch kind {
		case Git, Mercurial, Fossil:
			if len(tok) > ShortRefLength && tok[0] == 'g' && isHex(tok[1:]) {
				return tok[1:]
			}
			if len(tok) >= ShortRefLength && isHex(tok) && !isNumber(tok) {
				return tok
			}
		case SVN, Bazaar, CVS, Darcs:
			if len(tok) > 1 && tok[0] == 'r' && isNumber(tok[1:]) {
				return tok[1:]
			}
		}
	}
	return pkgver
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
