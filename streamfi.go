/*
Package streamfi defines the shared primitives of the streamfi payment
ledger: identities, time, and the key-value storage interfaces every
extension is built on.

The interesting parts live below:

  errors/       coded errors with stack traces
  coin/         safe integer money arithmetic
  store/        btree and bbolt backed key-value stores
  orm/          buckets, sequences and secondary indexes
  ebus/         synchronous event bus
  x/cash        fungible asset ledger (balances and allowances)
  x/paystream   streaming payment escrow (the core)
  x/paysched    fixed-interval recurring payments
  x/ramp        fiat on/off-ramp request workflow
  app/          transactional facade tying it all together
*/
package streamfi

// KVStore is a simple interface to get and set data. All backing stores
// implement at least this interface. Keys must never be nil.
type KVStore interface {
	// Get returns nil if the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has checks for existence of a key.
	Has(key []byte) (bool, error)

	// Set overwrites any previous value stored under the key.
	Set(key, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Iterator over a domain of keys in ascending order. End is
	// exclusive. Nil start or end means unbounded on that side.
	//
	// CONTRACT: no writes may happen within a domain while an iterator
	// exists over it.
	Iterator(start, end []byte) (Iterator, error)

	// ReverseIterator over a domain of keys in descending order. End is
	// exclusive.
	ReverseIterator(start, end []byte) (Iterator, error)
}

// Iterator provides sequential access to a range of keys.
//
//	for {
//		key, value, err := it.Next()
//		if errors.ErrIteratorDone.Is(err) {
//			break
//		}
//		...
//	}
type Iterator interface {
	// Next returns the next key-value pair, or ErrIteratorDone when the
	// range is exhausted. Once done, an iterator is forever done.
	Next() (key, value []byte, err error)

	// Release frees the resources of this iterator. Safe to call more
	// than once.
	Release()
}

// Persistent is implemented by anything that can be serialized into bytes
// and parsed back. Models implement it with hand-written binary codecs.
type Persistent interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// Model is a key-value pair as stored in a KVStore.
type Model struct {
	Key   []byte
	Value []byte
}

// CacheableKVStore is a KVStore that supports cache wrapping. A cache wrap
// is a scratch pad of uncommitted writes, the unit of atomicity for every
// public ledger operation.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap collects writes on top of a parent store. Call Write to apply
// them to the parent, or Discard to drop them without a trace.
type KVCacheWrap interface {
	// CacheableKVStore allows recursive wrapping.
	CacheableKVStore

	// Write flushes all cached writes to the parent store.
	Write() error

	// Discard invalidates this cache wrap and releases all data.
	Discard()
}
