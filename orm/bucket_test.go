package orm

import (
	"encoding/binary"
	"testing"

	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a minimal payload for bucket tests.
type counter struct {
	Count int64
	Owner []byte
}

var _ CloneableData = (*counter)(nil)

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrState, "negative counter")
	}
	return nil
}

func (c *counter) Copy() CloneableData {
	return &counter{Count: c.Count, Owner: append([]byte{}, c.Owner...)}
}

func (c *counter) Marshal() ([]byte, error) {
	out := make([]byte, 8+len(c.Owner))
	binary.BigEndian.PutUint64(out, uint64(c.Count))
	copy(out[8:], c.Owner)
	return out, nil
}

func (c *counter) Unmarshal(raw []byte) error {
	if len(raw) < 8 {
		return errors.Wrap(errors.ErrInput, "truncated counter")
	}
	c.Count = int64(binary.BigEndian.Uint64(raw))
	c.Owner = append([]byte{}, raw[8:]...)
	return nil
}

func counterObj(key []byte, count int64, owner []byte) Object {
	return NewSimpleObj(key, &counter{Count: count, Owner: owner})
}

func newCounterBucket() Bucket {
	return NewBucket("cnt", NewSimpleObj(nil, new(counter)))
}

func TestBucketSaveGetDelete(t *testing.T) {
	db := store.MemStore()
	b := newCounterBucket()

	key := []byte("first")

	// missing key is not an error
	got, err := b.Get(db, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.Save(db, counterObj(key, 42, nil)))

	got, err = b.Get(db, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key, got.Key())
	assert.Equal(t, int64(42), got.Value().(*counter).Count)

	// invalid model is rejected
	err = b.Save(db, counterObj(key, -5, nil))
	assert.True(t, errors.ErrState.Is(err))

	require.NoError(t, b.Delete(db, key))
	got, err = b.Get(db, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBucketIndex(t *testing.T) {
	db := store.MemStore()
	alice := []byte("aliceaddr")
	bob := []byte("bobaddr")

	byOwner := func(obj Object) ([]byte, error) {
		if obj == nil {
			return nil, errors.Wrap(errors.ErrHuman, "cannot index nil")
		}
		return obj.Value().(*counter).Owner, nil
	}
	b := newCounterBucket().WithIndex("owner", byOwner, false)

	require.NoError(t, b.Save(db, counterObj([]byte("a"), 1, alice)))
	require.NoError(t, b.Save(db, counterObj([]byte("b"), 2, alice)))
	require.NoError(t, b.Save(db, counterObj([]byte("c"), 3, bob)))

	objs, err := b.GetIndexed(db, "owner", alice)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, []byte("a"), objs[0].Key())
	assert.Equal(t, []byte("b"), objs[1].Key())

	// reassigning owner moves the reference
	require.NoError(t, b.Save(db, counterObj([]byte("b"), 2, bob)))

	objs, err = b.GetIndexed(db, "owner", alice)
	require.NoError(t, err)
	require.Len(t, objs, 1)

	objs, err = b.GetIndexed(db, "owner", bob)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	// delete removes the reference
	require.NoError(t, b.Delete(db, []byte("c")))
	objs, err = b.GetIndexed(db, "owner", bob)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, []byte("b"), objs[0].Key())

	// unknown index name
	_, err = b.GetIndexed(db, "missing", alice)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestBucketUniqueIndex(t *testing.T) {
	db := store.MemStore()

	byOwner := func(obj Object) ([]byte, error) {
		return obj.Value().(*counter).Owner, nil
	}
	b := newCounterBucket().WithIndex("owner", byOwner, true)

	owner := []byte("onlyone")
	require.NoError(t, b.Save(db, counterObj([]byte("a"), 1, owner)))

	err := b.Save(db, counterObj([]byte("b"), 2, owner))
	assert.True(t, errors.ErrDuplicate.Is(err))

	// updating the same object is fine
	require.NoError(t, b.Save(db, counterObj([]byte("a"), 7, owner)))
}

func TestSequence(t *testing.T) {
	db := store.MemStore()
	b := newCounterBucket()

	s := b.Sequence(SeqID)
	for i := int64(1); i <= 5; i++ {
		n, err := s.NextInt(db)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	latest, raw, err := s.Latest(db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), latest)
	assert.Equal(t, int64(5), DecodeSequence(raw))

	// a different sequence is independent
	other := b.Sequence("other")
	n, err := other.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBucketNameValidation(t *testing.T) {
	assert.Panics(t, func() { NewBucket("UPPER", NewSimpleObj(nil, new(counter))) })
	assert.Panics(t, func() { NewBucket("waytoolongname", NewSimpleObj(nil, new(counter))) })
	assert.Panics(t, func() {
		newCounterBucket().
			WithIndex("x", func(Object) ([]byte, error) { return nil, nil }, false).
			WithIndex("x", func(Object) ([]byte, error) { return nil, nil }, false)
	})
}
