package updates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"archupdates/internal/logger"
	"archupdates/pkg/aur"
	"archupdates/pkg/pacman"
	"archupdates/pkg/vcs"
	"archupdates/pkg/vercmp"
)

// DefaultDevelConcurrency bounds parallel recipe fetches and VCS queries.
const DefaultDevelConcurrency = 8

// RefResolver resolves the remote head of a VCS source. *vcs.Resolver
// satisfies it.
type RefResolver interface {
	Resolve(ctx context.Context, src vcs.Source) (string, error)
}

// DevelRemote is the upstream head of one devel package.
type DevelRemote struct {
	VCS         vcs.Kind `json:"vcs"`
	Ref         string   `json:"ref"`
	PackageBase string   `json:"package_base,omitempty"`
}

// DevelChecker determines whether devel packages lag behind their upstream
// repository.
type DevelChecker struct {
	client      AURClient
	resolver    RefResolver
	arch        string
	concurrency int
}

// NewDevelChecker creates a DevelChecker resolving sources for arch.
func NewDevelChecker(client AURClient, resolver RefResolver, arch string, concurrency int) *DevelChecker {
	if concurrency <= 0 {
		concurrency = DefaultDevelConcurrency
	}
	return &DevelChecker{
		client:      client,
		resolver:    resolver,
		arch:        arch,
		concurrency: concurrency,
	}
}

// Fetch resolves the upstream head of every devel package in installed.
//
// Package bases come from one batched AUR query; when it fails, package
// names are used as bases. Everything after that is per package: a missing
// recipe, an untrackable source or an unreachable remote only drops that
// package. The fetch fails as a whole only when no recipe could be
// downloaded at all.
func (c *DevelChecker) Fetch(ctx context.Context, installed []pacman.InstalledPackage) (map[string]DevelRemote, error) {
	pkgs := develPackages(installed)
	remote := make(map[string]DevelRemote, len(pkgs))
	if len(pkgs) == 0 {
		return remote, nil
	}

	names := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		names[i] = pkg.Name
	}
	bases, infoErr := c.packageBases(ctx, names)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var (
		mu         sync.Mutex
		recipeErrs []error
		fetched    int
	)
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)

	for base, members := range bases {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r, recipeOK, err := c.resolve(ctx, base)

			mu.Lock()
			defer mu.Unlock()
			if recipeOK {
				fetched++
			} else if err != nil && !isMiss(err) {
				recipeErrs = append(recipeErrs, err)
			}
			if err != nil {
				logger.Debug("no determination for %s: %v", base, err)
				return nil
			}
			for _, name := range members {
				remote[name] = r
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetched == 0 && len(recipeErrs) == len(bases) && len(bases) > 0 {
		return nil, fmt.Errorf("no build recipe could be downloaded: %w", errors.Join(append(recipeErrs, infoErr)...))
	}
	return remote, nil
}

// packageBases maps package bases to the requested names they build.
func (c *DevelChecker) packageBases(ctx context.Context, names []string) (map[string][]string, error) {
	bases := make(map[string][]string)

	info, err := c.client.Info(ctx, names...)
	if err != nil {
		logger.Debug("AUR lookup of devel packages failed, using names as bases: %v", err)
		for _, name := range names {
			bases[name] = append(bases[name], name)
		}
		return bases, err
	}

	found := make(map[string]bool, len(info))
	for _, p := range info {
		base := p.PackageBase
		if base == "" {
			base = p.Name
		}
		bases[base] = append(bases[base], p.Name)
		found[p.Name] = true
	}
	for _, name := range names {
		if !found[name] {
			logger.Debug("devel package %s is not in the AUR", name)
		}
	}
	return bases, nil
}

// resolve reports whether the recipe itself was retrieved alongside the
// outcome, so that recipe host failures can be told from remote failures.
func (c *DevelChecker) resolve(ctx context.Context, base string) (DevelRemote, bool, error) {
	info, err := c.client.FetchSRCINFO(ctx, base)
	if err != nil {
		return DevelRemote{}, false, err
	}

	src, err := vcs.FirstSource(info.Sources(c.arch))
	if err != nil {
		return DevelRemote{}, true, err
	}

	ref, err := c.resolver.Resolve(ctx, src)
	if err != nil {
		return DevelRemote{}, true, err
	}
	if ref == "" {
		return DevelRemote{}, true, errors.New("remote returned an empty reference")
	}
	return DevelRemote{VCS: src.Kind, Ref: ref, PackageBase: base}, true, nil
}

// isMiss reports errors that mean "nothing to determine" rather than an
// unreachable service.
func isMiss(err error) bool {
	return errors.Is(err, aur.ErrNotFound) || errors.Is(err, vcs.ErrNotVCS) ||
		errors.Is(err, vcs.ErrPinned) || errors.Is(err, vcs.ErrUnsupported)
}

// CompareDevel builds the devel state, sorted by name, of every installed
// devel package with a known remote head.
func CompareDevel(installed []pacman.InstalledPackage, remote map[string]DevelRemote, ignored *IgnoreList) []DevelUpdate {
	var updates []DevelUpdate
	for _, pkg := range develPackages(installed) {
		if ignored.Match(pkg.Name) {
			continue
		}
		r, ok := remote[pkg.Name]
		if !ok || r.Ref == "" {
			continue
		}
		kind := r.VCS
		if kind == "" {
			kind = vcs.KindFromSuffix(pkg.Name)
		}
		pkgver := vercmp.Parse(pkg.Version).Pkgver
		updates = append(updates, DevelUpdate{
			Name:             pkg.Name,
			VCS:              kind,
			InstalledVersion: pkg.Version,
			InstalledRef:     vcs.LocalRef(kind, pkgver),
			RemoteRef:        r.Ref,
			UpdateAvailable:  vcs.UpdateAvailable(kind, pkgver, r.Ref),
		})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}
