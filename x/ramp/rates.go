package ramp

import (
	"github.com/shopspring/decimal"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

var hundred = decimal.NewFromInt(100)

// FiatValueCents is the plain exchange value of the token amount in fiat
// cents, before any fee.
func (c *Config) FiatValueCents(amount coin.Coin) int64 {
	value := decimal.NewFromInt(amount.Amount).Mul(decimal.NewFromInt(c.RateCents))
	return value.IntPart()
}

// OnRampCostCents is what the user pays in fiat to receive the token
// amount: exchange value plus the on-ramp fee, rounded to whole cents.
func (c *Config) OnRampCostCents(amount coin.Coin) int64 {
	value := decimal.NewFromInt(c.FiatValueCents(amount))
	fee := hundred.Add(decimal.NewFromInt(c.OnRampFeePercent))
	return value.Mul(fee).Div(hundred).Round(0).IntPart()
}

// OffRampPayoutCents is what the user receives in fiat for the token
// amount: exchange value minus the off-ramp fee, rounded to whole cents.
func (c *Config) OffRampPayoutCents(amount coin.Coin) int64 {
	value := decimal.NewFromInt(c.FiatValueCents(amount))
	fee := hundred.Sub(decimal.NewFromInt(c.OffRampFeePercent))
	return value.Mul(fee).Div(hundred).Round(0).IntPart()
}

// TokenAmount converts fiat cents into the token amount at the configured
// rate, rounding down. The inverse of FiatValueCents up to rounding.
func (c *Config) TokenAmount(cents int64, ticker string) (coin.Coin, error) {
	if cents < 0 {
		return coin.Coin{}, errors.Wrapf(errors.ErrAmount, "%d cents", cents)
	}
	tokens := decimal.NewFromInt(cents).Div(decimal.NewFromInt(c.RateCents)).Floor()
	if !tokens.BigInt().IsInt64() {
		return coin.Coin{}, errors.Wrapf(errors.ErrOverflow, "%d cents", cents)
	}
	return coin.NewCoin(tokens.IntPart(), ticker), nil
}
