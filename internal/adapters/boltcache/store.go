// Package boltcache implements ports.DedupStore using bbolt (embedded B+
// tree). Selected for cache paths with a .bolt extension. Inserts ride in
// batched read-write transactions; a crash mid-run cannot corrupt previously
// committed batches.
package boltcache

import (
	"fmt"
	"time"

	"github.com/corey/mixdown/internal/ports"
	bolt "go.etcd.io/bbolt"
)

var bucketFingerprints = []byte("fingerprints")

// batchSize bounds how many inserts share one transaction.
const batchSize = 5000

// Store implements ports.DedupStore backed by bbolt.
type Store struct {
	db      *bolt.DB
	tx      *bolt.Tx
	bucket  *bolt.Bucket
	pending int
}

// Open opens (or creates) a bbolt store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFingerprints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	s := &Store{db: db}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) begin() error {
	tx, err := s.db.Begin(true)
	if err != nil {
		return fmt.Errorf("bbolt begin: %w", err)
	}
	s.tx = tx
	s.bucket = tx.Bucket(bucketFingerprints)
	s.pending = 0
	return nil
}

func (s *Store) commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("bbolt commit: %w", err)
	}
	return nil
}

// AddIfAbsent inserts fp, reporting true when it was not already present.
func (s *Store) AddIfAbsent(fp ports.Fingerprint) (bool, error) {
	if s.bucket.Get(fp[:]) != nil {
		return false, nil
	}
	if err := s.bucket.Put(fp[:], nil); err != nil {
		return false, fmt.Errorf("bbolt put: %w", err)
	}
	s.pending++
	if s.pending >= batchSize {
		if err := s.commit(); err != nil {
			return false, err
		}
		if err := s.begin(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Contains reports presence for each fingerprint, positionally.
func (s *Store) Contains(fps []ports.Fingerprint) ([]bool, error) {
	out := make([]bool, len(fps))
	for i, fp := range fps {
		out[i] = s.bucket.Get(fp[:]) != nil
	}
	return out, nil
}

// Len returns the number of stored fingerprints, including the open batch.
// Walks the bucket with a cursor so uncommitted inserts are counted.
func (s *Store) Len() (int, error) {
	n := 0
	c := s.bucket.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n, nil
}

// Close commits the open batch and closes the database.
func (s *Store) Close() error {
	commitErr := s.commit()
	closeErr := s.db.Close()
	if commitErr != nil {
		return commitErr
	}
	return closeErr
}
