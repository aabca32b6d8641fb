package updates

import (
	"context"
	"sort"

	"archupdates/pkg/aur"
	"archupdates/pkg/pacman"
	"archupdates/pkg/vercmp"
)

// AURClient is the subset of the AUR client the checkers use. *aur.Client
// satisfies it.
type AURClient interface {
	Info(ctx context.Context, names ...string) ([]aur.Package, error)
	FetchSRCINFO(ctx context.Context, pkgbase string) (*aur.SRCINFO, error)
}

// AURRemote is the latest AUR state of one package.
type AURRemote struct {
	Version     string `json:"version"`
	PackageBase string `json:"package_base,omitempty"`
	OutOfDate   bool   `json:"out_of_date,omitempty"`
}

// AURChecker compares foreign packages against the AUR.
type AURChecker struct {
	client AURClient
}

// NewAURChecker creates an AURChecker.
func NewAURChecker(client AURClient) *AURChecker {
	return &AURChecker{client: client}
}

// Fetch queries the AUR for every foreign, non-devel package in installed.
// Packages unknown to the AUR are absent from the result. A failure of any
// batch fails the whole fetch.
func (c *AURChecker) Fetch(ctx context.Context, installed []pacman.InstalledPackage) (map[string]AURRemote, error) {
	candidates := aurCandidates(installed)
	remote := make(map[string]AURRemote, len(candidates))
	if len(candidates) == 0 {
		return remote, nil
	}

	names := make([]string, len(candidates))
	for i, pkg := range candidates {
		names[i] = pkg.Name
	}

	pkgs, err := c.client.Info(ctx, names...)
	if err != nil {
		return nil, err
	}
	for i := range pkgs {
		remote[pkgs[i].Name] = AURRemote{
			Version:     pkgs[i].Version,
			PackageBase: pkgs[i].PackageBase,
			OutOfDate:   pkgs[i].IsOutOfDate(),
		}
	}
	return remote, nil
}

// CompareAUR returns, sorted by name, the foreign non-devel packages whose
// AUR version is strictly newer than the installed one.
func CompareAUR(installed []pacman.InstalledPackage, remote map[string]AURRemote, ignored *IgnoreList) []AURUpdate {
	var updates []AURUpdate
	for _, pkg := range aurCandidates(installed) {
		if ignored.Match(pkg.Name) {
			continue
		}
		latest, ok := remote[pkg.Name]
		if !ok || !vercmp.Newer(latest.Version, pkg.Version) {
			continue
		}
		updates = append(updates, AURUpdate{
			Name:             pkg.Name,
			InstalledVersion: pkg.Version,
			CandidateVersion: latest.Version,
			OutOfDate:        latest.OutOfDate,
			Explicit:         pkg.Reason == pacman.ReasonExplicit,
		})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}

// aurCandidates keeps foreign packages that are not devel packages; devel
// packages have no meaningful released version.
func aurCandidates(installed []pacman.InstalledPackage) []pacman.InstalledPackage {
	var out []pacman.InstalledPackage
	for _, pkg := range installed {
		if pkg.Foreign && !pkg.Devel {
			out = append(out, pkg)
		}
	}
	return out
}

func develPackages(installed []pacman.InstalledPackage) []pacman.InstalledPackage {
	var out []pacman.InstalledPackage
	for _, pkg := range installed {
		if pkg.Foreign && pkg.Devel {
			out = append(out, pkg)
		}
	}
	return out
}
