// Package updates detects pending updates for an Arch Linux system across the
// official repositories, the AUR, devel (VCS) packages and the news feed.
//
// Each source is checked independently. A Snapshot carries one Result per
// source; a failing source never hides the results of the others.
package updates

import (
	"fmt"
	"strings"
	"time"

	"archupdates/pkg/news"
	"archupdates/pkg/vcs"
)

// Source names one update source.
type Source string

const (
	SourcePacman Source = "pacman"
	SourceAUR    Source = "aur"
	SourceDevel  Source = "devel"
	SourceNews   Source = "news"
)

// AllSources lists every source in display order.
var AllSources = []Source{SourcePacman, SourceAUR, SourceDevel, SourceNews}

// ParseSource converts a source name, ignoring case.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSources {
		if src == known {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown update source %q (valid: pacman, aur, devel, news)", s)
}

// ParseSources converts a list of source names.
func ParseSources(names []string) ([]Source, error) {
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		src, err := ParseSource(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Mode tells whether a snapshot used the network.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// PacmanUpdate is an official repository package with a newer candidate.
type PacmanUpdate struct {
	Name             string `json:"name" yaml:"name"`
	InstalledVersion string `json:"installed_version" yaml:"installed_version"`
	CandidateVersion string `json:"candidate_version" yaml:"candidate_version"`
	Repository       string `json:"repository" yaml:"repository"`
	Explicit         bool   `json:"explicit,omitempty" yaml:"explicit,omitempty"`
}

// AURUpdate is a foreign package with a newer AUR version.
type AURUpdate struct {
	Name             string `json:"name" yaml:"name"`
	InstalledVersion string `json:"installed_version" yaml:"installed_version"`
	CandidateVersion string `json:"candidate_version" yaml:"candidate_version"`
	OutOfDate        bool   `json:"out_of_date,omitempty" yaml:"out_of_date,omitempty"`
	Explicit         bool   `json:"explicit,omitempty" yaml:"explicit,omitempty"`
}

// DevelUpdate is the state of a devel package whose upstream head could be
// determined. UpdateAvailable is set when the reference recorded in the
// installed version differs from the remote one.
type DevelUpdate struct {
	Name             string   `json:"name" yaml:"name"`
	VCS              vcs.Kind `json:"vcs" yaml:"vcs"`
	InstalledVersion string   `json:"installed_version" yaml:"installed_version"`
	InstalledRef     string   `json:"installed_ref" yaml:"installed_ref"`
	RemoteRef        string   `json:"remote_ref" yaml:"remote_ref"`
	UpdateAvailable  bool     `json:"update_available" yaml:"update_available"`
}

// NewsItem is a news entry published after the cutoff.
type NewsItem = news.Item

// Result is the outcome of one source: either the complete list of items or
// a failure, never both.
type Result[T any] struct {
	Items []T    `json:"items" yaml:"items"`
	Err   *Error `json:"error,omitempty" yaml:"error,omitempty"`
	// Stale is set when the items were computed from data left by an
	// earlier refresh because the current one failed.
	Stale bool `json:"stale,omitempty" yaml:"stale,omitempty"`
	// Skipped is set for sources that were not checked.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// OK reports whether the source succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil && !r.Skipped
}

func succeed[T any](items []T) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items}
}

func fail[T any](source Source, err error) Result[T] {
	return Result[T]{Err: classify(source, err)}
}

func skipped[T any]() Result[T] {
	return Result[T]{Skipped: true}
}

// Snapshot is the outcome of one check cycle. It is never modified after
// being returned.
type Snapshot struct {
	CheckedAt time.Time            `json:"checked_at" yaml:"checked_at"`
	Mode      Mode                 `json:"mode" yaml:"mode"`
	NewsSince time.Time            `json:"news_since" yaml:"news_since"`
	Pacman    Result[PacmanUpdate] `json:"pacman" yaml:"pacman"`
	AUR       Result[AURUpdate]    `json:"aur" yaml:"aur"`
	Devel     Result[DevelUpdate]  `json:"devel" yaml:"devel"`
	News      Result[NewsItem]     `json:"news" yaml:"news"`
}

// Errors returns the failures of all sources in display order.
func (s *Snapshot) Errors() []*Error {
	var errs []*Error
	for _, err := range []*Error{s.Pacman.Err, s.AUR.Err, s.Devel.Err, s.News.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors reports whether any source failed.
func (s *Snapshot) HasErrors() bool {
	return len(s.Errors()) > 0
}

// Pending returns the number of pending items of one source. Devel packages
// count only when an update is available.
func (s *Snapshot) Pending(source Source) int {
	switch source {
	case SourcePacman:
		return len(s.Pacman.Items)
	case SourceAUR:
		return len(s.AUR.Items)
	case SourceDevel:
		n := 0
		for _, u := range s.Devel.Items {
			if u.UpdateAvailable {
				n++
			}
		}
		return n
	case SourceNews:
		return len(s.News.Items)
	}
	return 0
}

// Total returns the number of pending package updates, leaving out the
// excluded sources. News is not a package update and is never counted.
func (s *Snapshot) Total(exclude ...Source) int {
	total := 0
	for _, src := range []Source{SourcePacman, SourceAUR, SourceDevel} {
		if !containsSource(exclude, src) {
			total += s.Pending(src)
		}
	}
	return total
}

// PendingDevel returns the devel packages with an available update.
func (s *Snapshot) PendingDevel() []DevelUpdate {
	var pending []DevelUpdate
	for _, u := range s.Devel.Items {
		if u.UpdateAvailable {
			pending = append(pending, u)
		}
	}
	return pending
}

func containsSource(list []Source, src Source) bool {
	for _, s := range list {
		if s == src {
			return true
		}
	}
	return false
}
