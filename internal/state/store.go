// Package state persists what archupdates remembers between runs: when news
// was last read, the remote data of the last online check and the last
// snapshot.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"archupdates/pkg/updates"
)

const (
	bucketMeta     = "meta"
	bucketRemote   = "remote"
	bucketSnapshot = "snapshot"

	keyNewsRead = "news_last_read"
	keyRemote   = "data"
	keyLast     = "last"
)

// ErrNeverRead is returned when news has never been marked as read.
var ErrNeverRead = errors.New("news has never been marked as read")

// Store is a BoltDB backed state store. It satisfies updates.RemoteStore.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens or creates the state database at path. Other processes holding
// the database are waited for up to timeout.
func Open(path string, timeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Ensure buckets exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketMeta, bucketRemote, bucketSnapshot} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewsLastRead returns when news was last marked as read.
func (s *Store) NewsLastRead() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketMeta)).Get([]byte(keyNewsRead))
		if v == nil {
			return ErrNeverRead
		}
		return t.UnmarshalText(v)
	})
	return t, err
}

// MarkNewsRead records t as the time news was last read.
func (s *Store) MarkNewsRead(t time.Time) error {
	data, err := t.UTC().MarshalText()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketMeta)).Put([]byte(keyNewsRead), data)
	})
}

// LoadRemote returns the stored remote data, or nil when there is none.
func (s *Store) LoadRemote() (*updates.RemoteData, error) {
	var data *updates.RemoteData
	err := s.get(bucketRemote, keyRemote, func(v []byte) error {
		data = &updates.RemoteData{}
		return json.Unmarshal(v, data)
	})
	return data, err
}

// SaveRemote replaces the stored remote data.
func (s *Store) SaveRemote(data *updates.RemoteData) error {
	return s.put(bucketRemote, keyRemote, data)
}

// LastSnapshot returns the most recently saved snapshot, or nil.
func (s *Store) LastSnapshot() (*updates.Snapshot, error) {
	var snap *updates.Snapshot
	err := s.get(bucketSnapshot, keyLast, func(v []byte) error {
		snap = &updates.Snapshot{}
		return json.Unmarshal(v, snap)
	})
	return snap, err
}

// SaveSnapshot replaces the stored snapshot.
func (s *Store) SaveSnapshot(snap *updates.Snapshot) error {
	return s.put(bucketSnapshot, keyLast, snap)
}

// Clear removes all remote data and snapshots. The news read time is kept.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketRemote, bucketSnapshot} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) get(bucket, key string, decode func([]byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := decode(v); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

func (s *Store) put(bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}
