// Package pacman reads installed-package state from pacman and maintains a
// private, unprivileged copy of the sync databases.
package pacman

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"archupdates/internal/executor"
)

// Runner executes an external command and returns its stdout.
// *executor.Executor satisfies it.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

const (
	// DefaultDBPath is pacman's system database directory.
	DefaultDBPath = "/var/lib/pacman"

	// OriginForeign marks packages that are in no sync database.
	OriginForeign = "foreign"
)

// DefaultDevelSuffixes are the package name suffixes treated as VCS packages.
var DefaultDevelSuffixes = []string{"-git", "-svn", "-hg", "-bzr", "-cvs", "-darcs"}

// InstallReason tells whether a package was installed explicitly.
type InstallReason int

const (
	ReasonDependency InstallReason = iota
	ReasonExplicit
)

// String returns the pacman wording for the reason.
func (r InstallReason) String() string {
	if r == ReasonExplicit {
		return "explicit"
	}
	return "dependency"
}

// InstalledPackage is one entry of the local package database.
type InstalledPackage struct {
	Name    string
	Version string
	Reason  InstallReason
	Foreign bool
	Devel   bool
	Origin  string // sync repository name, or OriginForeign
}

// Options configures the binaries and paths used to query pacman.
type Options struct {
	Binary        string // pacman
	ConfBinary    string // pacman-conf
	DBPath        string
	DevelSuffixes []string
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = "pacman"
	}
	if o.ConfBinary == "" {
		o.ConfBinary = "pacman-conf"
	}
	if o.DBPath == "" {
		o.DBPath = DefaultDBPath
	}
	if o.DevelSuffixes == nil {
		o.DevelSuffixes = DefaultDevelSuffixes
	}
	return o
}

// LocalDB queries the system's installed packages.
type LocalDB struct {
	runner Runner
	opts   Options
}

// NewLocalDB creates a LocalDB. A nil runner uses a default executor.
func NewLocalDB(runner Runner, opts Options) *LocalDB {
	if runner == nil {
		runner = executor.New(false)
	}
	return &LocalDB{runner: runner, opts: opts.withDefaults()}
}

// Installed lists every installed package with its install reason and
// origin repository. Origins come from the system sync databases; a package found in several
// repositories takes the first one pacman -Sl lists, which follows the
// repository order of pacman.conf.
func (db *LocalDB) Installed(ctx context.Context) ([]InstalledPackage, error) {
	all, err := db.query(ctx, "-Q")
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}
	explicit, err := db.query(ctx, "-Qe")
	if err != nil {
		return nil, fmt.Errorf("failed to list explicit packages: %w", err)
	}
	listing, err := db.run(ctx, db.opts.Binary, "-Sl", "--dbpath", db.opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync packages: %w", classify(err))
	}
	origins := make(map[string]string)
	for name, entry := range ParseSyncList(listing) {
		origins[name] = entry.Repository
	}

	explicitSet := make(map[string]bool, len(explicit))
	for _, pkg := range explicit {
		explicitSet[pkg.Name] = true
	}

	for i := range all {
		pkg := &all[i]
		if explicitSet[pkg.Name] {
			pkg.Reason = ReasonExplicit
		}
		if repo, ok := origins[pkg.Name]; ok {
			pkg.Origin = repo
		} else {
			pkg.Origin = OriginForeign
			pkg.Foreign = true
		}
		pkg.Devel = pkg.Foreign && IsDevel(pkg.Name, db.opts.DevelSuffixes)
	}
	return all, nil
}

// IgnoredPackages returns the IgnorePkg entries from pacman.conf.
func (db *LocalDB) IgnoredPackages(ctx context.Context) ([]string, error) {
	return db.confList(ctx, "IgnorePkg")
}

// Architecture returns the Architecture values from pacman.conf. The value
// may be "auto".
func (db *LocalDB) Architecture(ctx context.Context) ([]string, error) {
	return db.confList(ctx, "Architecture")
}

func (db *LocalDB) confList(ctx context.Context, arg string) ([]string, error) {
	out, err := db.run(ctx, db.opts.ConfBinary, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read pacman configuration %s: %w", arg, err)
	}
	var values []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			values = append(values, line)
		}
	}
	return values, nil
}

func (db *LocalDB) query(ctx context.Context, op string) ([]InstalledPackage, error) {
	out, err := db.run(ctx, db.opts.Binary, op, "--dbpath", db.opts.DBPath)
	if err != nil {
		return nil, classify(err)
	}
	return ParseQuery(out)
}

// run treats a silent exit status 1 as an empty result; pacman uses it for
// queries that match nothing, such as -Q on an empty local database.
func (db *LocalDB) run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := db.runner.Output(ctx, name, args...)
	if err != nil {
		var cmdErr *executor.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 &&
			strings.TrimSpace(cmdErr.Stderr) == "" && strings.TrimSpace(out) == "" {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// ParseQuery parses "name version" lines as printed by pacman -Q.
func ParseQuery(output string) ([]InstalledPackage, error) {
	var pkgs []InstalledPackage
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("unexpected pacman output line %q", line)
		}
		pkgs = append(pkgs, InstalledPackage{Name: fields[0], Version: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// IsDevel reports whether name ends with one of suffixes, ignoring case.
func IsDevel(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}
