package orm

import (
	"bytes"
	"encoding/binary"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

// Indexer calculates the secondary index key for a given object. Returning
// a nil key excludes the object from the index.
type Indexer func(Object) ([]byte, error)

// MultiKeyIndexer calculates the set of secondary index keys for a given
// object.
type MultiKeyIndexer func(Object) ([][]byte, error)

// Index represents a secondary index on a bucket. It is persisted in the
// same store as the bucket, under the
//
//	_i.<bucket>_<name>:<index key>
//
// keyspace, each entry holding the set of primary keys indexed under that
// index key.
type Index struct {
	name   string
	id     []byte
	unique bool
	index  MultiKeyIndexer
}

// NewMultiKeyIndex constructs an index with the given name and indexer.
func NewMultiKeyIndex(name string, indexer MultiKeyIndexer, unique bool) *Index {
	return &Index{
		name:   name,
		id:     append([]byte("_i."+name), ':'),
		unique: unique,
		index:  indexer,
	}
}

// IndexKey is the full key we store in the db, including prefix.
func (i *Index) IndexKey(key []byte) []byte {
	l := len(i.id)
	out := make([]byte, l+len(key))
	copy(out, i.id)
	copy(out[l:], key)
	return out
}

// Update handles updating the reference to the object in the secondary
// index.
//
//	prev == nil means insert
//	save == nil means delete
//	both a change
func (i *Index) Update(db streamfi.KVStore, prev, save Object) error {
	switch {
	case prev == nil && save == nil:
		return errors.Wrap(errors.ErrHuman, "update requires at least one non-nil object")
	case prev == nil:
		keys, err := i.index(save)
		if err != nil {
			return err
		}
		return i.insert(db, keys, save.Key())
	case save == nil:
		keys, err := i.index(prev)
		if err != nil {
			return err
		}
		return i.remove(db, keys, prev.Key())
	}

	oldKeys, err := i.index(prev)
	if err != nil {
		return err
	}
	newKeys, err := i.index(save)
	if err != nil {
		return err
	}
	if err := i.remove(db, subtract(oldKeys, newKeys), prev.Key()); err != nil {
		return err
	}
	return i.insert(db, subtract(newKeys, oldKeys), save.Key())
}

// GetAt returns a list of all primary keys that are indexed under the given
// index key.
func (i *Index) GetAt(db streamfi.KVStore, index []byte) ([][]byte, error) {
	raw, err := db.Get(i.IndexKey(index))
	if err != nil {
		return nil, err
	}
	return decodeRefs(raw)
}

func (i *Index) insert(db streamfi.KVStore, keys [][]byte, ref []byte) error {
	for _, key := range keys {
		dbkey := i.IndexKey(key)
		raw, err := db.Get(dbkey)
		if err != nil {
			return err
		}
		refs, err := decodeRefs(raw)
		if err != nil {
			return err
		}
		if i.unique && len(refs) > 0 {
			return errors.Wrapf(errors.ErrDuplicate, "index %s", i.name)
		}
		refs = addRef(refs, ref)
		if err := db.Set(dbkey, encodeRefs(refs)); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) remove(db streamfi.KVStore, keys [][]byte, ref []byte) error {
	for _, key := range keys {
		dbkey := i.IndexKey(key)
		raw, err := db.Get(dbkey)
		if err != nil {
			return err
		}
		refs, err := decodeRefs(raw)
		if err != nil {
			return err
		}
		refs = dropRef(refs, ref)
		if len(refs) == 0 {
			if err := db.Delete(dbkey); err != nil {
				return err
			}
			continue
		}
		if err := db.Set(dbkey, encodeRefs(refs)); err != nil {
			return err
		}
	}
	return nil
}

// subtract returns all elements of a that are not in b.
func subtract(a, b [][]byte) [][]byte {
	var res [][]byte
	for _, ak := range a {
		found := false
		for _, bk := range b {
			if bytes.Equal(ak, bk) {
				found = true
				break
			}
		}
		if !found {
			res = append(res, ak)
		}
	}
	return res
}

// addRef keeps the reference set sorted and free of duplicates.
func addRef(refs [][]byte, ref []byte) [][]byte {
	for idx, r := range refs {
		switch bytes.Compare(r, ref) {
		case 0:
			return refs
		case 1:
			res := make([][]byte, 0, len(refs)+1)
			res = append(res, refs[:idx]...)
			res = append(res, ref)
			return append(res, refs[idx:]...)
		}
	}
	return append(refs, ref)
}

func dropRef(refs [][]byte, ref []byte) [][]byte {
	for idx, r := range refs {
		if bytes.Equal(r, ref) {
			return append(refs[:idx], refs[idx+1:]...)
		}
	}
	return refs
}

// encodeRefs serializes a reference set as a count followed by
// length-prefixed entries.
func encodeRefs(refs [][]byte) []byte {
	size := 4
	for _, r := range refs {
		size += 4 + len(r)
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out, uint32(len(refs)))
	offset := 4
	for _, r := range refs {
		binary.BigEndian.PutUint32(out[offset:], uint32(len(r)))
		offset += 4
		copy(out[offset:], r)
		offset += len(r)
	}
	return out
}

func decodeRefs(raw []byte) ([][]byte, error) {
	if raw == nil {
		return nil, nil
	}
	if len(raw) < 4 {
		return nil, errors.Wrap(errors.ErrInput, "truncated reference set")
	}
	count := int(binary.BigEndian.Uint32(raw))
	offset := 4
	refs := make([][]byte, 0, count)
	for n := 0; n < count; n++ {
		if len(raw) < offset+4 {
			return nil, errors.Wrap(errors.ErrInput, "truncated reference set")
		}
		l := int(binary.BigEndian.Uint32(raw[offset:]))
		offset += 4
		if len(raw) < offset+l {
			return nil, errors.Wrap(errors.ErrInput, "truncated reference set")
		}
		refs = append(refs, append([]byte{}, raw[offset:offset+l]...))
		offset += l
	}
	return refs, nil
}
