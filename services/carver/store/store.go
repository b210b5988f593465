// Package store keeps a local history of scans in a bbolt database.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/swarmguard/carver/services/carver/scanner"
)

// ErrNotFound is returned by Get for an unknown scan id.
var ErrNotFound = errors.New("scan not found")

// Bucket names
var (
	bucketScans  = []byte("scans")
	bucketByFile = []byte("scans_by_sha256")
)

// Record is one completed scan and everything needed to reproduce it.
type Record struct {
	ScanID    string          `json:"scan_id"`
	File      string          `json:"file"`
	FileSize  int             `json:"file_size"`
	SHA256    string          `json:"sha256"`
	Workers   int             `json:"workers"`
	Engine    string          `json:"engine"`
	Registry  string          `json:"registry"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration_ns"`
	Matches   []scanner.Match `json:"matches"`
}

// Store wraps a bbolt database. Scan ids are time-ordered, so key order is
// chronological.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	opts := &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketScans, bucketByFile} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error { return s.db.Close() }

// Save writes rec and indexes it by file digest.
func (s *Store) Save(rec Record) error {
	if rec.ScanID == "" {
		return errors.New("save scan: empty scan id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scan: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketScans).Put([]byte(rec.ScanID), data); err != nil {
			return err
		}
		if rec.SHA256 == "" {
			return nil
		}
		return tx.Bucket(bucketByFile).Put(fileKey(rec.SHA256, rec.ScanID), nil)
	})
}

// Get loads one scan.
func (s *Store) Get(scanID string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketScans).Get([]byte(scanID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, scanID)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns every stored scan, oldest first.
func (s *Store) List() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketScans).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// ByFile returns the scans of files with the given sha256, oldest first.
func (s *Store) ByFile(sha256 string) ([]Record, error) {
	var out []Record
	prefix := []byte(sha256 + "/")
	err := s.db.View(func(tx *bbolt.Tx) error {
		scans := tx.Bucket(bucketScans)
		c := tx.Bucket(bucketByFile).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			data := scans.Get(k[len(prefix):])
			if data == nil {
				continue
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func fileKey(sha256, scanID string) []byte {
	return []byte(sha256 + "/" + scanID)
}
