package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rasto/lcmc-sub002/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketResources    = []byte("resources")
	bucketPlaceholders = []byte("placeholders")
	bucketJournal      = []byte("journal")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "lcmc.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketResources, bucketPlaceholders, bucketJournal} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket []byte, key string, v interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) get(bucket []byte, key, what string, v interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %s: %w", what, key, ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

func (s *BoltStore) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// list decodes every value of bucket in key order
func list[T any](db *bolt.DB, bucket []byte) ([]*T, error) {
	var out []*T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			item := new(T)
			if err := json.Unmarshal(v, item); err != nil {
				return err
			}
			out = append(out, item)
			return nil
		})
	})
	return out, err
}

// Resource operations
func (s *BoltStore) SaveResource(rsc *types.Resource) error {
	return s.put(bucketResources, rsc.ID, rsc)
}

func (s *BoltStore) GetResource(id string) (*types.Resource, error) {
	var rsc types.Resource
	if err := s.get(bucketResources, id, "resource", &rsc); err != nil {
		return nil, err
	}
	return &rsc, nil
}

func (s *BoltStore) ListResources() ([]*types.Resource, error) {
	return list[types.Resource](s.db, bucketResources)
}

func (s *BoltStore) DeleteResource(id string) error {
	return s.delete(bucketResources, id)
}

// Placeholder operations
func (s *BoltStore) SavePlaceholder(ph *types.PlaceholderState) error {
	return s.put(bucketPlaceholders, ph.ID, ph)
}

func (s *BoltStore) GetPlaceholder(id string) (*types.PlaceholderState, error) {
	var ph types.PlaceholderState
	if err := s.get(bucketPlaceholders, id, "placeholder", &ph); err != nil {
		return nil, err
	}
	return &ph, nil
}

func (s *BoltStore) ListPlaceholders() ([]*types.PlaceholderState, error) {
	return list[types.PlaceholderState](s.db, bucketPlaceholders)
}

func (s *BoltStore) DeletePlaceholder(id string) error {
	return s.delete(bucketPlaceholders, id)
}

// Journal operations

// AppendJournal stores rec under the next bucket sequence so that records
// list in commit order.
func (s *BoltStore) AppendJournal(rec *types.JournalRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

func (s *BoltStore) ListJournal() ([]*types.JournalRecord, error) {
	return list[types.JournalRecord](s.db, bucketJournal)
}
