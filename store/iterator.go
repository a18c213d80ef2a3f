package store

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

// Op is a single journaled write, either a set or a delete.
type Op struct {
	delete bool
	key    []byte
	value  []byte
}

// SetOp is a helper to create a set operation.
func SetOp(key, value []byte) Op {
	return Op{key: key, value: value}
}

// DelOp is a helper to create a delete operation.
func DelOp(key []byte) Op {
	return Op{key: key, delete: true}
}

// Apply executes this operation against the given store.
func (o Op) Apply(out streamfi.KVStore) error {
	if o.delete {
		return out.Delete(o.key)
	}
	return out.Set(o.key, o.value)
}

// IsDelete returns true for a tombstone operation.
func (o Op) IsDelete() bool {
	return o.delete
}

// KV returns the key and value of this operation. Value is nil for deletes.
func (o Op) KV() ([]byte, []byte) {
	return o.key, o.value
}

// batchWriter is implemented by stores that can apply a whole journal
// atomically.
type batchWriter interface {
	WriteBatch(ops []Op) error
}

// SliceIterator iterates over a fully materialized range of models.
type SliceIterator struct {
	data []streamfi.Model
	idx  int
}

var _ streamfi.Iterator = (*SliceIterator)(nil)

// NewSliceIterator creates a new iterator over this slice.
func NewSliceIterator(data []streamfi.Model) *SliceIterator {
	return &SliceIterator{
		data: data,
	}
}

// Next returns the next key-value pair, or ErrIteratorDone when exhausted.
func (s *SliceIterator) Next() ([]byte, []byte, error) {
	if s.idx >= len(s.data) {
		return nil, nil, errors.ErrIteratorDone
	}
	m := s.data[s.idx]
	s.idx++
	return m.Key, m.Value, nil
}

// Release frees the iterator data.
func (s *SliceIterator) Release() {
	s.data = nil
	s.idx = 0
}

// drain consumes an iterator into a slice and releases it.
func drain(it streamfi.Iterator) ([]streamfi.Model, error) {
	defer it.Release()
	var ms []streamfi.Model
	for {
		key, value, err := it.Next()
		switch {
		case err == nil:
			ms = append(ms, streamfi.Model{Key: key, Value: value})
		case errors.ErrIteratorDone.Is(err):
			return ms, nil
		default:
			return nil, err
		}
	}
}

// reverse materializes an ascending iterator and returns one walking the
// same range backwards.
func reverse(it streamfi.Iterator) (streamfi.Iterator, error) {
	ms, err := drain(it)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
	return NewSliceIterator(ms), nil
}
