package paystream

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
)

// Accrued returns the amount the recipient entry may withdraw right now.
// It is the single source of truth for claimable balances: a pure function
// of the committed stream state and the given time, monotonically
// non-decreasing while the entry is active.
//
// Earnings grow linearly at the entry rate, clamped to the stream window.
// Integer division of the entitlement by the duration can leave a
// remainder; it surfaces once the stop time is reached, when the full
// entitlement becomes payable.
func Accrued(s *Stream, e *RecipientEntry, now streamfi.UnixTime) (coin.Coin, error) {
	if e == nil {
		return coin.Coin{}, nil
	}
	zero := e.Amount.WithTicker(0)
	if !e.Active {
		return zero, nil
	}

	var earned coin.Coin
	switch {
	case now < s.Start:
		earned = zero
	case now >= s.Stop:
		earned = e.Amount
	default:
		elapsed := int64(now) - int64(s.Start)
		linear, err := e.Rate.Multiply(elapsed)
		if err != nil {
			return zero, err
		}
		earned = coin.Min(linear, e.Amount)
	}

	claimable, err := earned.Subtract(e.Claimed)
	if err != nil {
		return zero, err
	}
	// rounding can let claimed catch up with earned, never go negative
	if !claimable.IsNonNegative() {
		return zero, nil
	}
	return claimable, nil
}
