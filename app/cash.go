package app

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
)

// IssueCoins mints funds onto an account. Meant for bootstrapping and
// tests of a deployment, production balances arrive through ramps.
func (a *App) IssueCoins(ctx context.Context, dest streamfi.Address, amount coin.Coin) error {
	return a.exec(ctx, "issue coins", func(db streamfi.KVStore) ([]any, error) {
		return nil, a.cash.IssueCoins(db, dest, amount)
	})
}

// SetAllowance lets the spender move up to the given amount out of the
// owner account. Grant module addresses an allowance before creating
// streams, schedules or off-ramp requests.
func (a *App) SetAllowance(ctx context.Context, owner, spender streamfi.Address, amount coin.Coins) error {
	return a.exec(ctx, "set allowance", func(db streamfi.KVStore) ([]any, error) {
		return nil, a.cash.SetAllowance(db, owner, spender, amount)
	})
}

// Transfer moves funds between two accounts.
func (a *App) Transfer(ctx context.Context, src, dest streamfi.Address, amount coin.Coin) error {
	return a.exec(ctx, "transfer", func(db streamfi.KVStore) ([]any, error) {
		return nil, a.cash.MoveCoins(db, src, dest, amount)
	})
}

// Balance returns the funds of an account.
func (a *App) Balance(addr streamfi.Address) (coin.Coins, error) {
	var balance coin.Coins
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		balance, err = a.cash.Balance(db, addr)
		return err
	})
	return balance, err
}

// Allowance returns what the spender may still move out of the owner
// account.
func (a *App) Allowance(owner, spender streamfi.Address) (coin.Coins, error) {
	var allowance coin.Coins
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		allowance, err = a.cash.Allowance(db, owner, spender)
		return err
	})
	return allowance, err
}
