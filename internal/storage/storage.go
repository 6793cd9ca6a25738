// Package storage provides persistent prediction history for the classifier.
// It uses BoltDB as the underlying storage engine; every served prediction can
// be recorded together with the submitted record for later review or export.
//
// The package provides thread-safe operations for storing and retrieving
// time-ordered records with efficient range queries per mission.
package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Bucket name for prediction history
	dbFile            = "exoplanet-predictions.db"
)

// Store provides persistent storage for predictions using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// timeKey orders keys by mission, then timestamp. Zero padding keeps the
// lexicographic order of keys equal to their time order.
func timeKey(mission string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%020d", mission, ts.UnixNano()))
}

// scanRange calls fn for every value in bucket keyed between start and end
// (inclusive) for mission.
func (s *Store) scanRange(bucket, mission string, start, end time.Time, fn func(v []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		prefix := []byte(mission + "_")
		startKey := timeKey(mission, start)
		stopKey := timeKey(mission, end.Add(time.Nanosecond))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, stopKey) < 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	})
}
