package paysched

import (
	"encoding/binary"
	"time"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/orm"
)

// BucketName is where we store the schedules.
const BucketName = "schd"

var moduleCondition = streamfi.NewCondition("paysched", "module", nil)

// ModuleAddress is the spender address the scheduler pulls payments
// through. A creator grants it an allowance covering future payments.
func ModuleAddress() streamfi.Address {
	return moduleCondition.Address()
}

func scheduleKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func scheduleID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

// Schedule is a recurring payment of a fixed amount from a creator to a
// recipient at a fixed interval. Payments are pulled by anyone calling
// ExecutePayment once due, there is no background ticker.
type Schedule struct {
	Creator   streamfi.Address
	Recipient streamfi.Address
	Amount    coin.Coin
	// Interval between payments in seconds.
	Interval    int64
	NextPayment streamfi.UnixTime
	Active      bool
	TotalPaid   coin.Coin
	// PaymentCount is the number of executed payments.
	PaymentCount int64
}

var _ orm.CloneableData = (*Schedule)(nil)

func (s *Schedule) Validate() error {
	if err := s.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if err := s.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if !s.Amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "amount %v", &s.Amount)
	}
	if s.Interval <= 0 {
		return errors.Wrapf(errors.ErrInput, "interval %d", s.Interval)
	}
	if err := s.NextPayment.Validate(); err != nil {
		return errors.Wrap(err, "next payment")
	}
	if !s.TotalPaid.IsNonNegative() || !s.TotalPaid.SameType(s.Amount) {
		return errors.Wrapf(errors.ErrAmount, "total paid %v", &s.TotalPaid)
	}
	if s.PaymentCount < 0 {
		return errors.Wrapf(errors.ErrState, "payment count %d", s.PaymentCount)
	}
	return nil
}

func (s *Schedule) Copy() orm.CloneableData {
	return &Schedule{
		Creator:      s.Creator.Clone(),
		Recipient:    s.Recipient.Clone(),
		Amount:       s.Amount,
		Interval:     s.Interval,
		NextPayment:  s.NextPayment,
		Active:       s.Active,
		TotalPaid:    s.TotalPaid,
		PaymentCount: s.PaymentCount,
	}
}

// DueAt returns whether a payment can be executed at the given time.
func (s *Schedule) DueAt(now streamfi.UnixTime) bool {
	return s.Active && now >= s.NextPayment
}

func asSeconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

// AsSchedule safely extracts a Schedule value from the object.
func AsSchedule(obj orm.Object) *Schedule {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Schedule)
}

//--- ScheduleBucket - type-safe bucket

type ScheduleBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

func NewScheduleBucket() ScheduleBucket {
	b := orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Schedule))).
		WithIndex("creator", idxCreator, false)
	return ScheduleBucket{
		Bucket: b,
		idSeq:  b.Sequence(orm.SeqID),
	}
}

func idxCreator(obj orm.Object) ([]byte, error) {
	s := AsSchedule(obj)
	if s == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot index nil schedule")
	}
	return s.Creator, nil
}

func (b ScheduleBucket) Create(db streamfi.KVStore, s *Schedule) (int64, error) {
	id, err := b.idSeq.NextInt(db)
	if err != nil {
		return 0, err
	}
	return id, b.Bucket.Save(db, orm.NewSimpleObj(scheduleKey(id), s))
}

func (b ScheduleBucket) Get(db streamfi.KVStore, id int64) (*Schedule, error) {
	obj, err := b.Bucket.Get(db, scheduleKey(id))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return AsSchedule(obj), nil
}

func (b ScheduleBucket) Save(db streamfi.KVStore, id int64, s *Schedule) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(scheduleKey(id), s))
}

func (b ScheduleBucket) Count(db streamfi.KVStore) (int64, error) {
	latest, _, err := b.idSeq.Latest(db)
	return latest, err
}

func (b ScheduleBucket) ByCreator(db streamfi.KVStore, creator streamfi.Address) ([]int64, error) {
	objs, err := b.GetIndexed(db, "creator", creator)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(objs))
	for i, obj := range objs {
		ids[i] = scheduleID(obj.Key())
	}
	return ids, nil
}
