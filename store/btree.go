/*
Package store provides the key-value store implementations backing the
ledger: a btree based in-memory store and a bbolt based persistent store.
Both support cache wrapping, the unit of atomicity for ledger operations.
*/
package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

// MemStore returns an empty in-memory store. Useful for tests, and for any
// deployment that does not need persistence across restarts.
func MemStore() streamfi.CacheableKVStore {
	return &BTreeStore{
		bt: btree.New(2),
	}
}

// BTreeStore holds all data in an in-memory btree.
type BTreeStore struct {
	bt *btree.BTree
}

var _ streamfi.CacheableKVStore = (*BTreeStore)(nil)

// Get returns nil if the key does not exist.
func (s *BTreeStore) Get(key []byte) ([]byte, error) {
	if item := s.bt.Get(bkey{key}); item != nil {
		return item.(setItem).value, nil
	}
	return nil, nil
}

// Has checks for existence of a key.
func (s *BTreeStore) Has(key []byte) (bool, error) {
	return s.bt.Has(bkey{key}), nil
}

// Set overwrites any previous value stored under the key.
func (s *BTreeStore) Set(key, value []byte) error {
	s.bt.ReplaceOrInsert(newSetItem(key, value))
	return nil
}

// Delete removes the key.
func (s *BTreeStore) Delete(key []byte) error {
	s.bt.Delete(bkey{key})
	return nil
}

// Iterator over a domain of keys in ascending order.
func (s *BTreeStore) Iterator(start, end []byte) (streamfi.Iterator, error) {
	var ms []streamfi.Model
	ascendRange(s.bt, start, end, func(item btree.Item) bool {
		it := item.(setItem)
		ms = append(ms, streamfi.Model{Key: it.key, Value: it.value})
		return true
	})
	return NewSliceIterator(ms), nil
}

// ReverseIterator over a domain of keys in descending order.
func (s *BTreeStore) ReverseIterator(start, end []byte) (streamfi.Iterator, error) {
	it, err := s.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return reverse(it)
}

// CacheWrap returns a scratch pad that can be later written to this store,
// or discarded.
func (s *BTreeStore) CacheWrap() streamfi.KVCacheWrap {
	return NewBTreeCacheWrap(s)
}

// ascendRange walks the btree over the [start, end) domain, nil meaning
// unbounded.
func ascendRange(bt *btree.BTree, start, end []byte, fn btree.ItemIterator) {
	switch {
	case start == nil && end == nil:
		bt.Ascend(fn)
	case start == nil:
		bt.AscendLessThan(bkey{end}, fn)
	case end == nil:
		bt.AscendGreaterOrEqual(bkey{start}, fn)
	default:
		bt.AscendRange(bkey{start}, bkey{end}, fn)
	}
}

// BTreeCacheWrap places a btree overlay over any parent KVStore. All writes
// land in the overlay and in an ordered journal. Write replays the journal
// onto the parent, Discard drops everything.
type BTreeCacheWrap struct {
	bt     *btree.BTree
	ops    []Op
	parent streamfi.KVStore
}

var _ streamfi.KVCacheWrap = (*BTreeCacheWrap)(nil)

// NewBTreeCacheWrap initializes a btree overlay around the given store.
func NewBTreeCacheWrap(parent streamfi.KVStore) *BTreeCacheWrap {
	return &BTreeCacheWrap{
		bt:     btree.New(2),
		parent: parent,
	}
}

// CacheWrap layers another overlay on top of this one.
func (c *BTreeCacheWrap) CacheWrap() streamfi.KVCacheWrap {
	return NewBTreeCacheWrap(c)
}

// Write flushes all journaled writes to the parent store. When the parent
// supports batched writes the whole journal is applied atomically.
func (c *BTreeCacheWrap) Write() error {
	defer c.Discard()
	if b, ok := c.parent.(batchWriter); ok {
		return b.WriteBatch(c.ops)
	}
	for _, op := range c.ops {
		if err := op.Apply(c.parent); err != nil {
			return err
		}
	}
	return nil
}

// Discard invalidates this cache wrap and releases all data.
func (c *BTreeCacheWrap) Discard() {
	c.bt.Clear(false)
	c.ops = nil
}

// Set writes to the overlay and the journal.
func (c *BTreeCacheWrap) Set(key, value []byte) error {
	c.bt.ReplaceOrInsert(newSetItem(key, value))
	c.ops = append(c.ops, SetOp(key, value))
	return nil
}

// Delete writes a tombstone to the overlay and the journal.
func (c *BTreeCacheWrap) Delete(key []byte) error {
	c.bt.ReplaceOrInsert(newDeletedItem(key))
	c.ops = append(c.ops, DelOp(key))
	return nil
}

// Get reads from the overlay if present, else the parent store.
func (c *BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	if res := c.bt.Get(bkey{key}); res != nil {
		switch t := res.(type) {
		case setItem:
			return t.value, nil
		case deletedItem:
			return nil, nil
		default:
			return nil, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", res)
		}
	}
	return c.parent.Get(key)
}

// Has reads from the overlay if present, else the parent store.
func (c *BTreeCacheWrap) Has(key []byte) (bool, error) {
	if res := c.bt.Get(bkey{key}); res != nil {
		_, deleted := res.(deletedItem)
		return !deleted, nil
	}
	return c.parent.Has(key)
}

// Iterator combines the overlay and the parent results, honoring overlay
// tombstones and overwrites.
func (c *BTreeCacheWrap) Iterator(start, end []byte) (streamfi.Iterator, error) {
	parentIter, err := c.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	base, err := drain(parentIter)
	if err != nil {
		return nil, err
	}

	// Overlay entries shadow the parent ones with the same key.
	merged := btree.New(2)
	for _, m := range base {
		merged.ReplaceOrInsert(newSetItem(m.Key, m.Value))
	}
	ascendRange(c.bt, start, end, func(item btree.Item) bool {
		merged.ReplaceOrInsert(item)
		return true
	})

	var ms []streamfi.Model
	merged.Ascend(func(item btree.Item) bool {
		if it, ok := item.(setItem); ok {
			ms = append(ms, streamfi.Model{Key: it.key, Value: it.value})
		}
		return true
	})
	return NewSliceIterator(ms), nil
}

// ReverseIterator combines the overlay and the parent results in descending
// order.
func (c *BTreeCacheWrap) ReverseIterator(start, end []byte) (streamfi.Iterator, error) {
	it, err := c.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return reverse(it)
}

/////////////////////////////////////////////////////////
// Items stored in the btree

// we enforce all data in our btree implements keyer so we can compare nicely
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item and may be used for queries or
// embedded in data to store.
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff the second argument is greater than the first.
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type deletedItem struct {
	bkey
}

func newDeletedItem(key []byte) deletedItem {
	return deletedItem{bkey{key}}
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
