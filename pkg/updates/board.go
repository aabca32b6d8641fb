package updates

import (
	"errors"
	"time"
)

// Tracked is the state of one source across check cycles.
type Tracked[T any] struct {
	// Current is the result of the latest cycle that checked the source.
	Current Result[T] `json:"current" yaml:"current"`
	// LastGood holds the items of the latest successful cycle. It stays
	// available while the source is failing.
	LastGood   []T       `json:"last_good,omitempty" yaml:"last_good,omitempty"`
	LastGoodAt time.Time `json:"last_good_at,omitempty" yaml:"last_good_at,omitempty"`
	seen       bool
}

func (t *Tracked[T]) apply(r Result[T], at time.Time) {
	if r.Skipped {
		return
	}
	// An offline cycle cannot tell more about a source whose online check
	// failed; keep the online failure.
	if r.Err != nil && errors.Is(r.Err, ErrNoRemoteData) && t.Current.Err != nil {
		return
	}
	t.Current = r
	t.seen = true
	if r.OK() {
		t.LastGood = r.Items
		t.LastGoodAt = at
	}
}

// Items returns the current items, or those of the last success while the
// source is failing.
func (t *Tracked[T]) Items() []T {
	if t.Current.Err != nil {
		return t.LastGood
	}
	return t.Current.Items
}

// Failing reports whether the latest check of the source failed.
func (t *Tracked[T]) Failing() bool {
	return t.Current.Err != nil
}

// Checked reports whether any cycle has checked the source.
func (t *Tracked[T]) Checked() bool {
	return t.seen
}

// Board accumulates snapshots for long running displays. It is not safe for
// concurrent use.
type Board struct {
	Pacman Tracked[PacmanUpdate] `json:"pacman" yaml:"pacman"`
	AUR    Tracked[AURUpdate]    `json:"aur" yaml:"aur"`
	Devel  Tracked[DevelUpdate]  `json:"devel" yaml:"devel"`
	News   Tracked[NewsItem]     `json:"news" yaml:"news"`

	LastCheck  time.Time `json:"last_check" yaml:"last_check"`
	LastOnline time.Time `json:"last_online,omitempty" yaml:"last_online,omitempty"`
	NewsSince  time.Time `json:"news_since" yaml:"news_since"`
}

// Apply records the outcome of one cycle. Sources the cycle skipped keep
// their previous state.
func (b *Board) Apply(snap Snapshot) {
	b.Pacman.apply(snap.Pacman, snap.CheckedAt)
	b.AUR.apply(snap.AUR, snap.CheckedAt)
	b.Devel.apply(snap.Devel, snap.CheckedAt)
	b.News.apply(snap.News, snap.CheckedAt)

	b.LastCheck = snap.CheckedAt
	b.NewsSince = snap.NewsSince
	if snap.Mode == ModeOnline {
		b.LastOnline = snap.CheckedAt
	}
}

// PendingDevel returns the devel packages with an available update.
func (b *Board) PendingDevel() []DevelUpdate {
	var pending []DevelUpdate
	for _, u := range b.Devel.Items() {
		if u.UpdateAvailable {
			pending = append(pending, u)
		}
	}
	return pending
}

// Total counts pending package updates like Snapshot.Total, using the last
// good items of failing sources.
func (b *Board) Total(exclude ...Source) int {
	total := 0
	if !containsSource(exclude, SourcePacman) {
		total += len(b.Pacman.Items())
	}
	if !containsSource(exclude, SourceAUR) {
		total += len(b.AUR.Items())
	}
	if !containsSource(exclude, SourceDevel) {
		total += len(b.PendingDevel())
	}
	return total
}

// Errors returns the current failures in display order.
func (b *Board) Errors() []*Error {
	var errs []*Error
	for _, err := range []*Error{b.Pacman.Current.Err, b.AUR.Current.Err, b.Devel.Current.Err, b.News.Current.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
