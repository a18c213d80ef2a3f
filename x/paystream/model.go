package paystream

import (
	"encoding/binary"
	"time"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/orm"
)

// BucketName is where we store the streams.
const BucketName = "strm"

// moduleCondition guards the allowance that funds new streams. A creator
// grants an allowance to this address before calling CreateStream.
var moduleCondition = streamfi.NewCondition("paystream", "module", nil)

// ModuleAddress is the spender address the module pulls escrow through.
func ModuleAddress() streamfi.Address {
	return moduleCondition.Address()
}

// StreamAccount derives the escrow account that exclusively holds the
// funds of one stream.
func StreamAccount(id int64) streamfi.Address {
	return streamfi.NewCondition("paystream", "seq", streamKey(id)).Address()
}

func streamKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func streamID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

func asSeconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

// RecipientEntry is one recipient's share of a stream. Amount and Rate are
// fixed at creation, Claimed only grows and Active flips to false exactly
// once.
type RecipientEntry struct {
	Recipient streamfi.Address
	Amount    coin.Coin
	Rate      coin.Coin
	Claimed   coin.Coin
	Active    bool
}

func (e *RecipientEntry) Validate() error {
	if err := e.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if !e.Amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "entitlement %v", &e.Amount)
	}
	if !e.Rate.IsNonNegative() {
		return errors.Wrapf(errors.ErrAmount, "rate %v", &e.Rate)
	}
	if !e.Claimed.IsNonNegative() {
		return errors.Wrapf(errors.ErrAmount, "claimed %v", &e.Claimed)
	}
	if !e.Amount.SameType(e.Claimed) || !e.Amount.SameType(e.Rate) {
		return errors.Wrap(errors.ErrCurrency, "mixed entry tickers")
	}
	if !e.Amount.IsGTE(e.Claimed) {
		return errors.Wrapf(errors.ErrState, "claimed %v exceeds entitlement %v", &e.Claimed, &e.Amount)
	}
	return nil
}

// Remaining is the part of the entitlement never paid out to the
// recipient. On removal or cancellation it is refunded to the creator.
func (e *RecipientEntry) Remaining() (coin.Coin, error) {
	return e.Amount.Subtract(e.Claimed)
}

// Stream is an escrow of funds from one creator, divided among one or more
// recipients over a fixed duration. Streams are never deleted, only
// deactivated, so settled amounts stay queryable.
type Stream struct {
	Creator    streamfi.Address
	Total      coin.Coin
	Duration   int64
	Start      streamfi.UnixTime
	Stop       streamfi.UnixTime
	Active     bool
	Recipients []*RecipientEntry
}

var _ orm.CloneableData = (*Stream)(nil)

func (s *Stream) Validate() error {
	if err := s.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if !s.Total.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "total %v", &s.Total)
	}
	if s.Duration <= 0 {
		return errors.Wrapf(errors.ErrInput, "duration %d", s.Duration)
	}
	if err := s.Start.Validate(); err != nil {
		return errors.Wrap(err, "start time")
	}
	if s.Stop != s.Start.Add(asSeconds(s.Duration)) {
		return errors.Wrap(errors.ErrState, "stop time does not match duration")
	}
	if len(s.Recipients) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no recipients")
	}
	total := coin.Coin{}
	for _, e := range s.Recipients {
		if err := e.Validate(); err != nil {
			return err
		}
		sum, err := total.Add(e.Amount)
		if err != nil {
			return err
		}
		total = sum
	}
	if !total.Equals(s.Total) {
		return errors.Wrapf(errors.ErrState, "total %v does not match entitlements %v", &s.Total, &total)
	}
	return nil
}

func (s *Stream) Copy() orm.CloneableData {
	recipients := make([]*RecipientEntry, len(s.Recipients))
	for i, e := range s.Recipients {
		cpy := *e
		cpy.Recipient = e.Recipient.Clone()
		recipients[i] = &cpy
	}
	return &Stream{
		Creator:    s.Creator.Clone(),
		Total:      s.Total,
		Duration:   s.Duration,
		Start:      s.Start,
		Stop:       s.Stop,
		Active:     s.Active,
		Recipients: recipients,
	}
}

// Entry returns the recipient entry for the given address, nil if the
// address was never attached to this stream.
func (s *Stream) Entry(addr streamfi.Address) *RecipientEntry {
	for _, e := range s.Recipients {
		if e.Recipient.Equals(addr) {
			return e
		}
	}
	return nil
}

// AsStream safely extracts a Stream value from the object.
func AsStream(obj orm.Object) *Stream {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Stream)
}

//--- StreamBucket - type-safe bucket

// StreamBucket stores streams indexed by creator and by recipient.
type StreamBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

func NewStreamBucket() StreamBucket {
	b := orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Stream))).
		WithIndex("creator", idxCreator, false).
		WithMultiKeyIndex("recipient", idxRecipients, false)
	return StreamBucket{
		Bucket: b,
		idSeq:  b.Sequence(orm.SeqID),
	}
}

func idxCreator(obj orm.Object) ([]byte, error) {
	s := AsStream(obj)
	if s == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot index nil stream")
	}
	return s.Creator, nil
}

func idxRecipients(obj orm.Object) ([][]byte, error) {
	s := AsStream(obj)
	if s == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot index nil stream")
	}
	keys := make([][]byte, len(s.Recipients))
	for i, e := range s.Recipients {
		keys[i] = e.Recipient
	}
	return keys, nil
}

// Create assigns the next id and persists the stream under it.
func (b StreamBucket) Create(db streamfi.KVStore, s *Stream) (int64, error) {
	id, err := b.idSeq.NextInt(db)
	if err != nil {
		return 0, err
	}
	obj := orm.NewSimpleObj(streamKey(id), s)
	return id, b.Bucket.Save(db, obj)
}

// Get loads a stream by id, nil if not stored.
func (b StreamBucket) Get(db streamfi.KVStore, id int64) (*Stream, error) {
	obj, err := b.Bucket.Get(db, streamKey(id))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return AsStream(obj), nil
}

// Save persists an updated stream under an existing id.
func (b StreamBucket) Save(db streamfi.KVStore, id int64, s *Stream) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(streamKey(id), s))
}

// Count returns the number of streams ever created.
func (b StreamBucket) Count(db streamfi.KVStore) (int64, error) {
	latest, _, err := b.idSeq.Latest(db)
	return latest, err
}

// ByCreator returns the ids of all streams funded by the given address.
func (b StreamBucket) ByCreator(db streamfi.KVStore, creator streamfi.Address) ([]int64, error) {
	return b.indexedIDs(db, "creator", creator)
}

// ByRecipient returns the ids of all streams paying the given address.
func (b StreamBucket) ByRecipient(db streamfi.KVStore, recipient streamfi.Address) ([]int64, error) {
	return b.indexedIDs(db, "recipient", recipient)
}

func (b StreamBucket) indexedIDs(db streamfi.KVStore, index string, key []byte) ([]int64, error) {
	objs, err := b.GetIndexed(db, index, key)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(objs))
	for i, obj := range objs {
		ids[i] = streamID(obj.Key())
	}
	return ids, nil
}
