// Package cash keeps track of coin balances and spending allowances. It is
// the settlement layer every other module moves funds through: payment
// streams escrow into a stream account, schedules pull through allowances
// and ramps settle against the treasury.
package cash

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

// Controller is the functionality needed by other modules to settle funds.
// To allow better testing, and usage in other modules.
type Controller interface {
	// MoveCoins removes funds from the source account and adds them to
	// the destination account.
	MoveCoins(db streamfi.KVStore, source, destination streamfi.Address, amount coin.Coin) error

	// IssueCoins increases the number of funds on the destination
	// account. New funds are created by this call.
	IssueCoins(db streamfi.KVStore, destination streamfi.Address, amount coin.Coin) error

	// Balance returns the amount of funds stored under the given account
	// address.
	Balance(db streamfi.KVStore, addr streamfi.Address) (coin.Coins, error)

	// SetAllowance replaces the amount a spender may move out of the
	// owner account.
	SetAllowance(db streamfi.KVStore, owner, spender streamfi.Address, amount coin.Coins) error

	// Allowance returns the remaining amount a spender may move out of
	// the owner account.
	Allowance(db streamfi.KVStore, owner, spender streamfi.Address) (coin.Coins, error)

	// MoveWithAllowance moves funds from the owner account on behalf of
	// the spender, reducing the spender allowance by the amount moved.
	MoveWithAllowance(db streamfi.KVStore, owner, spender, destination streamfi.Address, amount coin.Coin) error
}

// CashController is the standard implementation of the Controller
// interface. Other modules hold it by interface to stay testable.
type CashController struct {
	bucket  Bucket
	allowed AllowanceBucket
}

var _ Controller = CashController{}

// NewController returns a base CashController.
func NewController() CashController {
	return CashController{
		bucket:  NewBucket(),
		allowed: NewAllowanceBucket(),
	}
}

// MoveCoins moves the given amount from src to dest. If src doesn't exist,
// or doesn't have sufficient coins, it fails. Source and destination must
// differ: both wallets are loaded and saved as separate objects, so a self
// transfer would credit on top of an unsettled debit.
func (c CashController) MoveCoins(db streamfi.KVStore, src, dest streamfi.Address, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive transfer: %v", &amount)
	}
	if src.Equals(dest) {
		return errors.Wrap(errors.ErrInput, "self transfer")
	}

	sender, err := c.bucket.Get(db, src)
	if err != nil {
		return err
	}
	if sender == nil {
		return errors.Wrapf(errors.ErrEmpty, "empty account %s", src)
	}
	if !sender.Coins().Contains(amount) {
		return errors.Wrapf(errors.ErrInsufficientFunds, "funds %s", sender.Coins())
	}

	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return err
	}
	if err := sender.Subtract(amount); err != nil {
		return err
	}
	if err := recipient.Add(amount); err != nil {
		return err
	}

	// save them and return
	if err := c.bucket.Save(db, sender); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}

// IssueCoins attempts to add the given amount of coins to the destination
// address. Fails if it overflows the wallet.
//
// Note the amount may also be negative:
// "the lord giveth and the lord taketh away"
func (c CashController) IssueCoins(db streamfi.KVStore, dest streamfi.Address, amount coin.Coin) error {
	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return err
	}
	if err := recipient.Add(amount); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}

// Balance returns the amount of funds stored under a given address. Missing
// accounts have no funds.
func (c CashController) Balance(db streamfi.KVStore, addr streamfi.Address) (coin.Coins, error) {
	wallet, err := c.bucket.Get(db, addr)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire wallet")
	}
	if wallet == nil {
		return nil, nil
	}
	return wallet.Coins(), nil
}

// SetAllowance replaces the amount the spender may move out of the owner
// account. Setting an empty amount revokes the allowance.
func (c CashController) SetAllowance(db streamfi.KVStore, owner, spender streamfi.Address, amount coin.Coins) error {
	if err := amount.Validate(); err != nil {
		return errors.Wrap(err, "invalid allowance")
	}
	if owner.Equals(spender) {
		return errors.Wrap(errors.ErrInput, "self allowance")
	}
	allowance, err := c.allowed.GetOrCreate(db, owner, spender)
	if err != nil {
		return err
	}
	allowance.Set(amount)
	return c.allowed.Save(db, allowance)
}

// Allowance returns the remaining amount the spender may move out of the
// owner account.
func (c CashController) Allowance(db streamfi.KVStore, owner, spender streamfi.Address) (coin.Coins, error) {
	allowance, err := c.allowed.Get(db, owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return nil, nil
	}
	return allowance.Coins(), nil
}

// MoveWithAllowance moves funds out of the owner account on behalf of the
// spender. The allowance is reduced before the transfer so a failing
// transfer cannot leave an inflated allowance behind.
func (c CashController) MoveWithAllowance(db streamfi.KVStore, owner, spender, dest streamfi.Address, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive transfer: %v", &amount)
	}
	allowance, err := c.allowed.Get(db, owner, spender)
	if err != nil {
		return err
	}
	if allowance == nil || !allowance.Coins().Contains(amount) {
		return errors.Wrapf(errors.ErrInsufficientAllowance, "spender %s", spender)
	}
	if err := allowance.Subtract(amount); err != nil {
		return err
	}
	if err := c.allowed.Save(db, allowance); err != nil {
		return err
	}
	return c.MoveCoins(db, owner, dest, amount)
}
