// Package storage keeps a record of every dependency build in a bbolt database.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"
)

var (
	stampBucket   = []byte("stamps")
	historyBucket = []byte("history")
)

// Stamp describes the last build of a dependency
type Stamp struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Branch    string    `json:"branch,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Artifacts []string  `json:"artifacts,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	BuiltAt   time.Time `json:"built_at"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
}

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the stamp database at path
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return nil, eris.Wrapf(err, "Failed to create directory for %s", path)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to open %s", path)
	}

	buckets := [][]byte{stampBucket, historyBucket}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "Failed to initialise buckets")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveStamp replaces the current stamp of the dependency and appends it to its history
func (s *Store) SaveStamp(ctx context.Context, stamp *Stamp) error {
	encoded, err := json.Marshal(stamp)
	if err != nil {
		return eris.Wrap(err, "Failed to encode stamp")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(stampBucket).Put([]byte(stamp.Name), encoded)
		if err != nil {
			return err
		}

		history, err := tx.Bucket(historyBucket).CreateBucketIfNotExists([]byte(stamp.Name))
		if err != nil {
			return err
		}

		key := []byte(stamp.BuiltAt.UTC().Format(time.RFC3339Nano))
		return history.Put(key, encoded)
	})
}

// GetStamp returns nil if the dependency was never built
func (s *Store) GetStamp(ctx context.Context, name string) (*Stamp, error) {
	var stamp *Stamp
	err := s.db.View(func(tx *bolt.Tx) error {
		item := tx.Bucket(stampBucket).Get([]byte(name))
		if item == nil {
			return nil
		}

		stamp = new(Stamp)
		return json.Unmarshal(item, stamp)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to read stamp for %s", name)
	}

	return stamp, nil
}

// ListStamps returns the current stamp of every dependency sorted by name
func (s *Store) ListStamps(ctx context.Context) ([]*Stamp, error) {
	result := make([]*Stamp, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(stampBucket).ForEach(func(k, v []byte) error {
			stamp := new(Stamp)
			if err := json.Unmarshal(v, stamp); err != nil {
				return eris.Wrapf(err, "Failed to decode stamp %s", k)
			}

			result = append(result, stamp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// History returns every recorded build of the dependency, oldest first
func (s *Store) History(ctx context.Context, name string) ([]*Stamp, error) {
	result := make([]*Stamp, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(historyBucket).Bucket([]byte(name))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			stamp := new(Stamp)
			if err := json.Unmarshal(v, stamp); err != nil {
				return eris.Wrapf(err, "Failed to decode stamp %s/%s", name, k)
			}

			result = append(result, stamp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
