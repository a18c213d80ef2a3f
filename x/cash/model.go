package cash

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/orm"
)

// BucketName is where we store the balances.
const BucketName = "cash"

// AllowanceBucketName is where we store spending allowances.
const AllowanceBucketName = "allow"

//---- Set

// Set keeps the balance of a wallet. Coins are sorted by ticker and hold
// no zero values.
type Set struct {
	Coins coin.Coins
}

var _ orm.CloneableData = (*Set)(nil)

// Validate requires that all coins are in alphabetical order and positive.
func (s *Set) Validate() error {
	return s.Coins.Validate()
}

// Copy makes a new set with the same coins.
func (s *Set) Copy() orm.CloneableData {
	return &Set{
		Coins: s.Coins.Clone(),
	}
}

func (s *Set) Marshal() ([]byte, error) {
	return marshalCoins(s.Coins)
}

func (s *Set) Unmarshal(raw []byte) error {
	cs, err := unmarshalCoins(raw)
	if err != nil {
		return err
	}
	s.Coins = cs
	return nil
}

//--- Wallet

// Wallet is a set of coins tied to an address. It is a type-safe wrapper
// around orm.SimpleObj.
type Wallet struct {
	key   []byte
	value *Set
}

var _ orm.Object = (*Wallet)(nil)

// NewWallet creates an empty wallet with this address.
func NewWallet(key streamfi.Address) *Wallet {
	return &Wallet{
		key:   key,
		value: new(Set),
	}
}

// Value gets the value stored in the object.
func (w Wallet) Value() streamfi.Persistent {
	return w.value
}

// Key returns the key to store the object under.
func (w Wallet) Key() []byte {
	return w.key
}

// Validate makes sure the fields aren't empty. And delegates to the value
// validator if present.
func (w Wallet) Validate() error {
	if err := streamfi.Address(w.key).Validate(); err != nil {
		return err
	}
	return w.value.Validate()
}

// SetKey may be used to update a wallet key.
func (w *Wallet) SetKey(key []byte) {
	w.key = key
}

// Clone will make a copy of this object.
func (w *Wallet) Clone() orm.Object {
	res := &Wallet{
		value: w.value.Copy().(*Set),
	}
	// only copy key if non-nil
	if len(w.key) > 0 {
		res.key = append([]byte(nil), w.key...)
	}
	return res
}

// Coins returns the coins stored in the wallet.
func (w Wallet) Coins() coin.Coins {
	return w.value.Coins
}

// Add modifies the wallet to add Coin c.
func (w *Wallet) Add(c coin.Coin) error {
	cs, err := w.Coins().Add(c)
	if err != nil {
		return err
	}
	w.value.Coins = cs
	return nil
}

// Subtract modifies the wallet to remove Coin c.
func (w *Wallet) Subtract(c coin.Coin) error {
	return w.Add(c.Negative())
}

//--- cash.Bucket - type-safe bucket

// Bucket is a type-safe wrapper around orm.Bucket.
type Bucket struct {
	orm.Bucket
}

// NewBucket initializes a cash.Bucket with default name.
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, NewWallet(nil)),
	}
}

func (b Bucket) Get(db streamfi.KVStore, key streamfi.Address) (*Wallet, error) {
	obj, err := b.Bucket.Get(db, key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*Wallet), nil
}

func (b Bucket) Save(db streamfi.KVStore, value *Wallet) error {
	return b.Bucket.Save(db, value)
}

func (b Bucket) GetOrCreate(db streamfi.KVStore, key streamfi.Address) (*Wallet, error) {
	wallet, err := b.Get(db, key)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		wallet = NewWallet(key)
	}
	return wallet, nil
}

//--- Allowance

// Allowance is the amount a spender may move out of an owner wallet. It is
// keyed by owner address followed by spender address.
type Allowance struct {
	key   []byte
	value *Set
}

var _ orm.Object = (*Allowance)(nil)

// allowanceKey builds the composite primary key.
func allowanceKey(owner, spender streamfi.Address) []byte {
	key := make([]byte, 0, len(owner)+len(spender))
	key = append(key, owner...)
	return append(key, spender...)
}

// NewAllowance creates an allowance entry for the owner/spender pair.
func NewAllowance(owner, spender streamfi.Address) *Allowance {
	return &Allowance{
		key:   allowanceKey(owner, spender),
		value: new(Set),
	}
}

func (a Allowance) Value() streamfi.Persistent {
	return a.value
}

func (a Allowance) Key() []byte {
	return a.key
}

func (a Allowance) Validate() error {
	if len(a.key) != 2*streamfi.AddressLength {
		return errors.Wrap(errors.ErrInput, "malformed allowance key")
	}
	return a.value.Validate()
}

func (a *Allowance) SetKey(key []byte) {
	a.key = key
}

func (a *Allowance) Clone() orm.Object {
	res := &Allowance{
		value: a.value.Copy().(*Set),
	}
	if len(a.key) > 0 {
		res.key = append([]byte(nil), a.key...)
	}
	return res
}

// Coins returns the remaining allowance.
func (a Allowance) Coins() coin.Coins {
	return a.value.Coins
}

// Set replaces the allowance with the given coins.
func (a *Allowance) Set(cs coin.Coins) {
	a.value.Coins = cs.Clone()
}

// Subtract reduces the allowance by c.
func (a *Allowance) Subtract(c coin.Coin) error {
	cs, err := a.Coins().Subtract(c)
	if err != nil {
		return err
	}
	a.value.Coins = cs
	return nil
}

// AllowanceBucket is a type-safe wrapper around orm.Bucket.
type AllowanceBucket struct {
	orm.Bucket
}

func NewAllowanceBucket() AllowanceBucket {
	return AllowanceBucket{
		Bucket: orm.NewBucket(AllowanceBucketName, NewAllowance(nil, nil)),
	}
}

func (b AllowanceBucket) Get(db streamfi.KVStore, owner, spender streamfi.Address) (*Allowance, error) {
	obj, err := b.Bucket.Get(db, allowanceKey(owner, spender))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*Allowance), nil
}

func (b AllowanceBucket) GetOrCreate(db streamfi.KVStore, owner, spender streamfi.Address) (*Allowance, error) {
	allowance, err := b.Get(db, owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		allowance = NewAllowance(owner, spender)
	}
	return allowance, nil
}

func (b AllowanceBucket) Save(db streamfi.KVStore, value *Allowance) error {
	return b.Bucket.Save(db, value)
}
