package database

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
)

const sessionBucket = "session"

// Store is a session persister that holds a connection until closed
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string, expires time.Time) error
	Delete(keys ...string) error
	Close() error
}

// stored is what a key holds on disk
type stored struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// BoltPersister keeps the session in a local bolt file
type BoltPersister struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the bolt file at path
func OpenBolt(path string) (*BoltPersister, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bolt db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create %s bucket: %w", sessionBucket, err)
	}

	slog.Info("opened bolt session store", "path", path)
	return &BoltPersister{db: db, now: time.Now}, nil
}

// Get returns the value of key. Expired values are removed and reported as missing.
func (b *BoltPersister) Get(key string) (string, bool, error) {
	var s stored
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(sessionBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &s)
	})
	if err != nil {
		return "", false, fmt.Errorf("could not read %s from bolt: %w", key, err)
	}
	if !found {
		return "", false, nil
	}

	if !s.Expires.IsZero() && !s.Expires.After(b.now()) {
		slog.Debug("bolt key expired", "key", key, "expires", s.Expires)
		if err := b.Delete(key); err != nil {
			slog.Warn("could not remove expired key", "key", key, "error", err)
		}
		return "", false, nil
	}
	return s.Value, true, nil
}

// Set stores value under key until expires
func (b *BoltPersister) Set(key, value string, expires time.Time) error {
	raw, err := json.Marshal(stored{Value: value, Expires: expires})
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("could not write %s to bolt: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (b *BoltPersister) Delete(keys ...string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not delete from bolt: %w", err)
	}
	return nil
}

// Close closes the bolt file
func (b *BoltPersister) Close() error {
	return b.db.Close()
}
