package orm

import (
	"github.com/streamfi/streamfi"
)

// Object is what is stored in a bucket. The key is joined with the bucket
// prefix to form the full store key, the value is the serialized data.
type Object interface {
	Keyed
	Cloneable
	// Validate returns an error if the object is not in a valid state to
	// save to the db (eg. field missing, out of range, ...).
	Validate() error

	Value() streamfi.Persistent
}

// Keyed is anything that can identify itself.
type Keyed interface {
	Key() []byte
	SetKey([]byte)
}

// Cloneable will create a new object that can be loaded into.
type Cloneable interface {
	Clone() Object
}

// CloneableData is an intelligent value that can be embedded in a simple
// object to handle much of the details.
type CloneableData interface {
	Validate() error
	streamfi.Persistent
	Copy() CloneableData
}

// Reader defines an interface that allows reading objects from the db.
type Reader interface {
	Get(db streamfi.KVStore, key []byte) (Object, error)
}
