package paystream

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

// CreateStreamMsg opens a new stream. The caller funds it with the sum of
// all entitlements, pulled through an allowance granted to ModuleAddress.
type CreateStreamMsg struct {
	Recipients []streamfi.Address
	Amounts    []coin.Coin
	// Duration of the stream in seconds.
	Duration int64
}

// Validate rejects malformed requests before any state is touched.
func (m *CreateStreamMsg) Validate() error {
	if len(m.Recipients) != len(m.Amounts) {
		return errors.Wrapf(errors.ErrInput, "%d recipients but %d amounts", len(m.Recipients), len(m.Amounts))
	}
	if len(m.Recipients) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no recipients")
	}
	if m.Duration <= 0 {
		return errors.Wrapf(errors.ErrInput, "duration %d", m.Duration)
	}
	for i, addr := range m.Recipients {
		if err := addr.Validate(); err != nil {
			return errors.Wrapf(err, "recipient #%d", i)
		}
		for _, prev := range m.Recipients[:i] {
			if addr.Equals(prev) {
				return errors.Wrapf(errors.ErrDuplicate, "recipient %s", addr)
			}
		}
	}
	for i, amount := range m.Amounts {
		if err := amount.Validate(); err != nil {
			return errors.Wrapf(err, "amount #%d", i)
		}
		if !amount.IsPositive() {
			return errors.Wrapf(errors.ErrAmount, "amount #%d is not positive", i)
		}
		if !amount.SameType(m.Amounts[0]) {
			return errors.Wrapf(errors.ErrCurrency, "amount #%d ticker %s", i, amount.Ticker)
		}
	}
	return nil
}

// Total sums all entitlements, failing on overflow.
func (m *CreateStreamMsg) Total() (coin.Coin, error) {
	var total coin.Coin
	for _, amount := range m.Amounts {
		sum, err := total.Add(amount)
		if err != nil {
			return coin.Coin{}, err
		}
		total = sum
	}
	return total, nil
}
