package store

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

var boltBucket = []byte("streamfi")

// BoltStore is a persistent KVStore backed by a bbolt database file. All
// data lives in a single bbolt bucket; key prefixing is handled by the orm
// layer above.
type BoltStore struct {
	db *bolt.DB
}

var _ streamfi.CacheableKVStore = (*BoltStore)(nil)
var _ batchWriter = (*BoltStore)(nil)

// OpenBoltStore opens or creates a bbolt database at the given path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns nil if the key does not exist.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(boltBucket).Get(key); raw != nil {
			// The slice is only valid within the transaction.
			value = append([]byte{}, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return value, nil
}

// Has checks for existence of a key.
func (s *BoltStore) Has(key []byte) (bool, error) {
	value, err := s.Get(key)
	return value != nil, err
}

// Set overwrites any previous value stored under the key.
func (s *BoltStore) Set(key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
	return errors.Wrap(err, "bolt put")
}

// Delete removes the key.
func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
	return errors.Wrap(err, "bolt delete")
}

// WriteBatch applies a whole journal within a single bbolt transaction, so
// a committed cache wrap is atomic on disk as well.
func (s *BoltStore) WriteBatch(ops []Op) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, op := range ops {
			key, value := op.KV()
			if op.IsDelete() {
				if err := b.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err := b.Put(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "bolt batch")
}

// Iterator over a domain of keys in ascending order. The range is
// materialized within a single read transaction.
func (s *BoltStore) Iterator(start, end []byte) (streamfi.Iterator, error) {
	var ms []streamfi.Model
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()

		var k, v []byte
		if start == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(start)
		}
		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) >= 0 {
				break
			}
			ms = append(ms, streamfi.Model{
				Key:   append([]byte{}, k...),
				Value: append([]byte{}, v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return NewSliceIterator(ms), nil
}

// ReverseIterator over a domain of keys in descending order.
func (s *BoltStore) ReverseIterator(start, end []byte) (streamfi.Iterator, error) {
	it, err := s.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return reverse(it)
}

// CacheWrap returns a scratch pad that can be later written to this store,
// or discarded.
func (s *BoltStore) CacheWrap() streamfi.KVCacheWrap {
	return NewBTreeCacheWrap(s)
}
