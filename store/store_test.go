package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

// runSuite exercises the KVStore contract against any driver.
func runSuite(t *testing.T, db streamfi.CacheableKVStore) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		value, err := db.Get([]byte("missing"))
		require.NoError(t, err)
		assert.Nil(t, value)

		ok, err := db.Has([]byte("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, db.Set([]byte("k1"), []byte("v1")))

		value, err := db.Get([]byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)

		require.NoError(t, db.Delete([]byte("k1")))
		value, err = db.Get([]byte("k1"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("iterator respects range bounds and order", func(t *testing.T) {
		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, db.Set([]byte(k), []byte("v:"+k)))
		}

		it, err := db.Iterator([]byte("b"), []byte("d"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, drainKeys(t, it))

		it, err = db.ReverseIterator([]byte("b"), []byte("d"))
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, drainKeys(t, it))

		it, err = db.Iterator(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, drainKeys(t, it))
	})

	t.Run("cache wrap write applies to parent", func(t *testing.T) {
		cache := db.CacheWrap()
		require.NoError(t, cache.Set([]byte("wrapped"), []byte("yes")))

		// Not visible in the parent until written.
		value, err := db.Get([]byte("wrapped"))
		require.NoError(t, err)
		assert.Nil(t, value)

		// But visible through the wrap.
		value, err = cache.Get([]byte("wrapped"))
		require.NoError(t, err)
		assert.Equal(t, []byte("yes"), value)

		require.NoError(t, cache.Write())
		value, err = db.Get([]byte("wrapped"))
		require.NoError(t, err)
		assert.Equal(t, []byte("yes"), value)
	})

	t.Run("cache wrap discard leaves parent untouched", func(t *testing.T) {
		require.NoError(t, db.Set([]byte("keep"), []byte("original")))

		cache := db.CacheWrap()
		require.NoError(t, cache.Set([]byte("keep"), []byte("dirty")))
		require.NoError(t, cache.Delete([]byte("a")))
		cache.Discard()

		value, err := db.Get([]byte("keep"))
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), value)

		ok, err := db.Has([]byte("a"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("cache wrap shadows deletes in iteration", func(t *testing.T) {
		cache := db.CacheWrap()
		require.NoError(t, cache.Delete([]byte("b")))
		require.NoError(t, cache.Set([]byte("bb"), []byte("new")))

		it, err := cache.Iterator([]byte("a"), []byte("d"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "bb", "c"}, drainKeys(t, it))
		cache.Discard()
	})

	t.Run("nested cache wrap", func(t *testing.T) {
		outer := db.CacheWrap()
		require.NoError(t, outer.Set([]byte("nested"), []byte("one")))

		inner := outer.CacheWrap()
		require.NoError(t, inner.Set([]byte("nested"), []byte("two")))
		require.NoError(t, inner.Write())

		value, err := outer.Get([]byte("nested"))
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), value)
		outer.Discard()

		value, err = db.Get([]byte("nested"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}

func drainKeys(t *testing.T, it streamfi.Iterator) []string {
	t.Helper()
	defer it.Release()
	var keys []string
	for {
		key, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return keys
		}
		require.NoError(t, err)
		keys = append(keys, string(key))
	}
}

func TestMemStore(t *testing.T) {
	runSuite(t, MemStore())
}

func TestBoltStore(t *testing.T) {
	db, err := OpenBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runSuite(t, db)
}

func TestIteratorDoneIsSticky(t *testing.T) {
	it := NewSliceIterator(nil)
	for i := 0; i < 2; i++ {
		_, _, err := it.Next()
		require.True(t, errors.ErrIteratorDone.Is(err))
	}
}
