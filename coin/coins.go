package coin

import (
	"sort"
	"strings"

	"github.com/streamfi/streamfi/errors"
)

// Coins is a set of coins, one per currency, sorted by ticker and with no
// zero values. The empty set is a valid value.
type Coins []*Coin

// NewCoins wraps the given coins into a normalized set. It fails when two
// coins of the same currency are given or when any coin is invalid.
func NewCoins(cs ...Coin) (Coins, error) {
	res := make(Coins, 0, len(cs))
	var err error
	for _, c := range cs {
		res, err = res.Add(c)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Clone returns a deep copy of this set.
func (cs Coins) Clone() Coins {
	if cs == nil {
		return nil
	}
	res := make(Coins, len(cs))
	for i, c := range cs {
		res[i] = c.Clone()
	}
	return res
}

// Add returns a new set with the given coin merged in. A zero result for a
// currency removes that currency from the set.
func (cs Coins) Add(c Coin) (Coins, error) {
	if c.IsZero() {
		return cs, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	idx := sort.Search(len(cs), func(i int) bool {
		return cs[i].Ticker >= c.Ticker
	})
	if idx < len(cs) && cs[idx].Ticker == c.Ticker {
		sum, err := cs[idx].Add(c)
		if err != nil {
			return nil, err
		}
		res := cs.Clone()
		if sum.IsZero() {
			return append(res[:idx], res[idx+1:]...), nil
		}
		res[idx] = &sum
		return res, nil
	}

	res := make(Coins, 0, len(cs)+1)
	res = append(res, cs[:idx].Clone()...)
	res = append(res, &c)
	res = append(res, cs[idx:].Clone()...)
	return res, nil
}

// Subtract returns a new set with the given coin value removed. The result
// may contain a negative amount only transiently; callers that forbid debt
// must check Contains first.
func (cs Coins) Subtract(c Coin) (Coins, error) {
	return cs.Add(c.Negative())
}

// Amount returns the amount stored for the given ticker, a typed zero when
// the currency is not in the set.
func (cs Coins) Amount(ticker string) Coin {
	for _, c := range cs {
		if c.Ticker == ticker {
			return *c
		}
	}
	return Coin{Ticker: ticker}
}

// Contains returns true if there is at least the given value in the set.
func (cs Coins) Contains(c Coin) bool {
	if c.IsZero() {
		return true
	}
	return cs.Amount(c.Ticker).IsGTE(c)
}

// IsPositive returns true if every coin in the set is positive and the set
// is not empty.
func (cs Coins) IsPositive() bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.IsPositive() {
			return false
		}
	}
	return true
}

// IsNonNegative returns true if no coin in the set is negative.
func (cs Coins) IsNonNegative() bool {
	for _, c := range cs {
		if !c.IsNonNegative() {
			return false
		}
	}
	return true
}

// Equals returns true if both sets contain the same values.
func (cs Coins) Equals(o Coins) bool {
	if len(cs) != len(o) {
		return false
	}
	for i := range cs {
		if !cs[i].Equals(*o[i]) {
			return false
		}
	}
	return true
}

// Validate requires a sorted set with unique currencies, no zero values and
// every coin valid.
func (cs Coins) Validate() error {
	last := ""
	for _, c := range cs {
		if c == nil {
			return errors.Wrap(errors.ErrEmpty, "nil coin")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if c.IsZero() {
			return errors.Wrapf(errors.ErrAmount, "zero value for %s", c.Ticker)
		}
		if c.Ticker <= last {
			return errors.Wrapf(errors.ErrState, "unsorted set: %s", c.Ticker)
		}
		last = c.Ticker
	}
	return nil
}

// String provides a human readable representation of the set.
func (cs Coins) String() string {
	if len(cs) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
