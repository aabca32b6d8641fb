package state

import (
	"time"

	"archupdates/pkg/updates"
)

// Shared opens the database for each operation and closes it right after,
// so that long running processes such as the watch loop do not hold the
// database lock between checks.
type Shared struct {
	path    string
	timeout time.Duration
}

// NewShared creates a Shared store for the database at path.
func NewShared(path string, timeout time.Duration) *Shared {
	return &Shared{path: path, timeout: timeout}
}

func (s *Shared) with(fn func(*Store) error) error {
	store, err := Open(s.path, s.timeout)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// LoadRemote returns the stored remote data, or nil when there is none.
func (s *Shared) LoadRemote() (data *updates.RemoteData, err error) {
	err = s.with(func(st *Store) error {
		data, err = st.LoadRemote()
		return err
	})
	return data, err
}

// SaveRemote replaces the stored remote data.
func (s *Shared) SaveRemote(data *updates.RemoteData) error {
	return s.with(func(st *Store) error { return st.SaveRemote(data) })
}

// NewsLastRead returns when news was last marked as read.
func (s *Shared) NewsLastRead() (t time.Time, err error) {
	err = s.with(func(st *Store) error {
		t, err = st.NewsLastRead()
		return err
	})
	return t, err
}

// MarkNewsRead records t as the time news was last read.
func (s *Shared) MarkNewsRead(t time.Time) error {
	return s.with(func(st *Store) error { return st.MarkNewsRead(t) })
}

// SaveSnapshot replaces the stored snapshot.
func (s *Shared) SaveSnapshot(snap *updates.Snapshot) error {
	return s.with(func(st *Store) error { return st.SaveSnapshot(snap) })
}

// LastSnapshot returns the most recently saved snapshot, or nil.
func (s *Shared) LastSnapshot() (snap *updates.Snapshot, err error) {
	err = s.with(func(st *Store) error {
		snap, err = st.LastSnapshot()
		return err
	})
	return snap, err
}
