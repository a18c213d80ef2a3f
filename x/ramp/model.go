package ramp

import (
	"encoding/binary"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/orm"
)

// BucketName is where we store the ramp requests.
const BucketName = "ramp"

// ConfigBucketName holds the singleton ramp configuration.
const ConfigBucketName = "rampc"

// configKey is the fixed key of the configuration singleton.
var configKey = []byte("config")

var (
	moduleCondition  = streamfi.NewCondition("ramp", "module", nil)
	custodyCondition = streamfi.NewCondition("ramp", "custody", nil)
)

// ModuleAddress is the spender address off-ramp deposits are pulled
// through.
func ModuleAddress() streamfi.Address {
	return moduleCondition.Address()
}

// CustodyAddress holds off-ramp deposits until they are approved,
// rejected or cancelled.
func CustodyAddress() streamfi.Address {
	return custodyCondition.Address()
}

func requestKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func requestID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

// RequestType distinguishes fiat purchases from fiat payouts.
type RequestType uint8

const (
	OnRamp RequestType = iota + 1
	OffRamp
)

func (t RequestType) String() string {
	switch t {
	case OnRamp:
		return "onramp"
	case OffRamp:
		return "offramp"
	default:
		return "invalid"
	}
}

// Status of a ramp request. Only Pending and Approved have outgoing
// transitions:
//
//	Pending  -> Approved | Rejected | Cancelled
//	Approved -> Completed            (off-ramp fiat payout confirmation)
//
// except on-ramp approval which settles immediately and jumps straight to
// Completed.
type Status uint8

const (
	Pending Status = iota + 1
	Approved
	Rejected
	Completed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Terminal statuses accept no further operations.
func (s Status) Terminal() bool {
	return s == Rejected || s == Completed || s == Cancelled
}

// Config is the singleton ramp configuration. The owner set by InitConfig
// administers requests and may update the terms.
type Config struct {
	Owner    streamfi.Address
	Treasury streamfi.Address
	// RateCents is the fiat price of one token unit, in cents.
	RateCents int64
	// Fees in whole percents, added on-ramp, deducted off-ramp.
	OnRampFeePercent  int64
	OffRampFeePercent int64
	MinOnRamp         coin.Coin
	MaxOnRamp         coin.Coin
	MinOffRamp        coin.Coin
	MaxOffRamp        coin.Coin
}

var _ orm.CloneableData = (*Config)(nil)

func (c *Config) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := c.Treasury.Validate(); err != nil {
		return errors.Wrap(err, "treasury")
	}
	if c.RateCents <= 0 {
		return errors.Wrapf(errors.ErrInput, "rate %d cents", c.RateCents)
	}
	if c.OnRampFeePercent < 0 || c.OnRampFeePercent > 100 {
		return errors.Wrapf(errors.ErrInput, "on-ramp fee %d%%", c.OnRampFeePercent)
	}
	if c.OffRampFeePercent < 0 || c.OffRampFeePercent > 100 {
		return errors.Wrapf(errors.ErrInput, "off-ramp fee %d%%", c.OffRampFeePercent)
	}
	for _, pair := range []struct {
		min, max coin.Coin
	}{
		{c.MinOnRamp, c.MaxOnRamp},
		{c.MinOffRamp, c.MaxOffRamp},
	} {
		if !pair.min.IsPositive() || !pair.max.IsPositive() {
			return errors.Wrap(errors.ErrAmount, "limits must be positive")
		}
		if !pair.min.SameType(pair.max) {
			return errors.Wrap(errors.ErrCurrency, "mixed limit tickers")
		}
		if !pair.max.IsGTE(pair.min) {
			return errors.Wrap(errors.ErrInput, "minimum above maximum")
		}
	}
	return nil
}

func (c *Config) Copy() orm.CloneableData {
	cpy := *c
	cpy.Owner = c.Owner.Clone()
	cpy.Treasury = c.Treasury.Clone()
	return &cpy
}

// Request is one fiat on/off-ramp request moving through the status
// machine. Requests are never deleted.
type Request struct {
	User   streamfi.Address
	Type   RequestType
	Status Status
	// Amount is the token side of the exchange.
	Amount coin.Coin
	// FiatCents is the fiat side, fees included, fixed at creation.
	FiatCents int64
	// Currency is the ISO fiat currency code, display only.
	Currency       string
	PaymentMethod  string
	PaymentDetails string
	// Wallet receives the tokens of an approved on-ramp.
	Wallet    streamfi.Address
	UserNotes string
	// AdminNotes records the owner's decision rationale or the fiat
	// payout reference.
	AdminNotes string
	// Reference is an opaque identifier shared with the fiat side.
	Reference string
	CreatedAt streamfi.UnixTime
	UpdatedAt streamfi.UnixTime
}

var _ orm.CloneableData = (*Request)(nil)

func (r *Request) Validate() error {
	if err := r.User.Validate(); err != nil {
		return errors.Wrap(err, "user")
	}
	if r.Type != OnRamp && r.Type != OffRamp {
		return errors.Wrapf(errors.ErrInput, "request type %d", r.Type)
	}
	if r.Status < Pending || r.Status > Cancelled {
		return errors.Wrapf(errors.ErrState, "status %d", r.Status)
	}
	if !r.Amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "amount %v", &r.Amount)
	}
	if r.FiatCents <= 0 {
		return errors.Wrapf(errors.ErrAmount, "fiat %d cents", r.FiatCents)
	}
	if r.Type == OnRamp {
		if err := r.Wallet.Validate(); err != nil {
			return errors.Wrap(err, "wallet")
		}
	}
	if r.Reference == "" {
		return errors.Wrap(errors.ErrEmpty, "missing reference")
	}
	if err := r.CreatedAt.Validate(); err != nil {
		return errors.Wrap(err, "created at")
	}
	return nil
}

func (r *Request) Copy() orm.CloneableData {
	cpy := *r
	cpy.User = r.User.Clone()
	cpy.Wallet = r.Wallet.Clone()
	return &cpy
}

// AsRequest safely extracts a Request value from the object.
func AsRequest(obj orm.Object) *Request {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Request)
}

//--- buckets

// RequestBucket stores requests indexed by user.
type RequestBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

func NewRequestBucket() RequestBucket {
	b := orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Request))).
		WithIndex("user", idxUser, false)
	return RequestBucket{
		Bucket: b,
		idSeq:  b.Sequence(orm.SeqID),
	}
}

func idxUser(obj orm.Object) ([]byte, error) {
	r := AsRequest(obj)
	if r == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot index nil request")
	}
	return r.User, nil
}

func (b RequestBucket) Create(db streamfi.KVStore, r *Request) (int64, error) {
	id, err := b.idSeq.NextInt(db)
	if err != nil {
		return 0, err
	}
	return id, b.Bucket.Save(db, orm.NewSimpleObj(requestKey(id), r))
}

func (b RequestBucket) Get(db streamfi.KVStore, id int64) (*Request, error) {
	obj, err := b.Bucket.Get(db, requestKey(id))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return AsRequest(obj), nil
}

func (b RequestBucket) Save(db streamfi.KVStore, id int64, r *Request) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(requestKey(id), r))
}

func (b RequestBucket) Count(db streamfi.KVStore) (int64, error) {
	latest, _, err := b.idSeq.Latest(db)
	return latest, err
}

func (b RequestBucket) ByUser(db streamfi.KVStore, user streamfi.Address) ([]int64, error) {
	objs, err := b.GetIndexed(db, "user", user)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(objs))
	for i, obj := range objs {
		ids[i] = requestID(obj.Key())
	}
	return ids, nil
}

// ConfigBucket holds the configuration singleton.
type ConfigBucket struct {
	orm.Bucket
}

func NewConfigBucket() ConfigBucket {
	return ConfigBucket{
		Bucket: orm.NewBucket(ConfigBucketName, orm.NewSimpleObj(nil, new(Config))),
	}
}

func (b ConfigBucket) Get(db streamfi.KVStore) (*Config, error) {
	obj, err := b.Bucket.Get(db, configKey)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.Value().(*Config), nil
}

func (b ConfigBucket) Save(db streamfi.KVStore, c *Config) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(configKey, c))
}
