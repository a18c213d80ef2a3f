package coin

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/streamfi/streamfi/errors"
)

// IsCC is the RegExp to ensure valid currency codes
var IsCC = regexp.MustCompile(`^[A-Z]{3,4}$`).MatchString

// Coin is an amount of a single currency, expressed in the smallest
// indivisible unit of that currency (token base units). All streaming rate
// math is defined on these integer units, so there is no fractional part.
type Coin struct {
	Amount int64
	Ticker string
}

// NewCoin creates a new coin object.
func NewCoin(amount int64, ticker string) Coin {
	return Coin{
		Amount: amount,
		Ticker: ticker,
	}
}

// ID returns the coin ticker name.
func (c Coin) ID() string {
	return c.Ticker
}

// Add combines two coins. Returns an error if they are of different
// currencies or if the combination would cause an overflow.
func (c Coin) Add(o Coin) (Coin, error) {
	// If any of the coins represents no value and does not have a ticker
	// set then it has no influence on the addition result.
	if c.Ticker == "" && c.IsZero() {
		return o, nil
	}
	if o.Ticker == "" && o.IsZero() {
		return c, nil
	}

	if !c.SameType(o) {
		return Coin{}, errors.Wrapf(errors.ErrCurrency, "adding %s to %s", o.Ticker, c.Ticker)
	}

	amount, err := add64(c.Amount, o.Amount)
	if err != nil {
		return Coin{}, err
	}
	c.Amount = amount
	return c, nil
}

// Negative returns the opposite coin value.
//
//	c.Add(c.Negative()).IsZero() == true
func (c Coin) Negative() Coin {
	return Coin{
		Ticker: c.Ticker,
		Amount: -c.Amount,
	}
}

// Subtract returns the value of this coin reduced by given amount.
func (c Coin) Subtract(amount Coin) (Coin, error) {
	return c.Add(amount.Negative())
}

// Multiply returns the result of a coin value multiplication. This method
// can fail if the result would overflow the maximum coin value.
func (c Coin) Multiply(times int64) (Coin, error) {
	amount, err := mul64(c.Amount, times)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: c.Ticker, Amount: amount}, nil
}

// Divide splits the value of a coin into given amount of pieces and returns
// a single piece together with the leftover that cannot be split evenly.
// For example dividing 50 over 100 pieces results in a single piece of 0
// and a leftover of 50.
func (c Coin) Divide(pieces int64) (Coin, Coin, error) {
	if pieces <= 0 {
		zero := Coin{Ticker: c.Ticker}
		return zero, zero, errors.Wrap(errors.ErrInput, "pieces must be greater than zero")
	}
	one := Coin{
		Ticker: c.Ticker,
		Amount: c.Amount / pieces,
	}
	rest := Coin{
		Ticker: c.Ticker,
		Amount: c.Amount % pieces,
	}
	return one, rest, nil
}

// Min returns the smaller of two coin values. Both must be of the same
// currency.
func Min(a, b Coin) Coin {
	if a.Compare(b) <= 0 {
		return a
	}
	return b
}

// Compare will check values of two coins, without inspecting the currency
// code. It is up to the caller to determine if they want to check this.
//
// Returns 1 if c is larger, -1 if o is larger, 0 if equal.
func (c Coin) Compare(o Coin) int {
	switch {
	case c.Amount > o.Amount:
		return 1
	case c.Amount < o.Amount:
		return -1
	default:
		return 0
	}
}

// Equals returns true if all fields are identical.
func (c Coin) Equals(o Coin) bool {
	return c.Ticker == o.Ticker && c.Amount == o.Amount
}

// IsEmpty returns true on a nil pointer or a zero amount.
func IsEmpty(c *Coin) bool {
	return c == nil || c.IsZero()
}

// IsZero returns true if the amount is 0.
func (c Coin) IsZero() bool {
	return c.Amount == 0
}

// IsPositive returns true if the value is greater than 0.
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// IsNonNegative returns true if the value is 0 or higher.
func (c Coin) IsNonNegative() bool {
	return c.Amount >= 0
}

// IsGTE returns true if c is the same type and at least as large as o.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Amount >= o.Amount
}

// SameType returns true if they have the same currency.
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// Clone provides an independent copy of a coin pointer.
func (c *Coin) Clone() *Coin {
	if c == nil {
		return nil
	}
	return &Coin{
		Ticker: c.Ticker,
		Amount: c.Amount,
	}
}

// WithTicker returns a zero value coin of the same currency. Handy when an
// accumulator needs a typed zero to start from.
func (c Coin) WithTicker(amount int64) Coin {
	return Coin{Ticker: c.Ticker, Amount: amount}
}

// Validate ensures that the coin has a valid currency code. It accepts
// negative values, so you may want to make other checks in your business
// logic.
func (c Coin) Validate() error {
	if !IsCC(c.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "invalid currency: %s", c.Ticker)
	}
	return nil
}

// String provides a human readable representation of the coin.
func (c Coin) String() string {
	if c.Ticker == "" {
		return strconv.FormatInt(c.Amount, 10)
	}
	return strconv.FormatInt(c.Amount, 10) + " " + c.Ticker
}

// ParseHumanFormat parses a human readable coin representation. Accepted
// format is a string:
//
//	"<amount> <ticker>"
func ParseHumanFormat(h string) (Coin, error) {
	results := humanCoinFormatRx.FindStringSubmatch(strings.TrimSpace(h))
	if results == nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format: %q", h)
	}
	amount, err := strconv.ParseInt(results[1], 10, 64)
	if err != nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid amount: %s", err)
	}
	return Coin{
		Amount: amount,
		Ticker: results[2],
	}, nil
}

var humanCoinFormatRx = regexp.MustCompile(`^(\-?\d+)\s*([A-Z]{3,4})$`)

// Set updates this coin value to what is provided. This method implements
// the flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseHumanFormat(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}

// MarshalBinary serializes the coin as 8 bytes of big endian amount
// followed by the ticker characters.
func (c Coin) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8+len(c.Ticker))
	binary.BigEndian.PutUint64(buf, uint64(c.Amount))
	copy(buf[8:], c.Ticker)
	return buf, nil
}

// UnmarshalBinary deserializes a coin from its binary form.
func (c *Coin) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.Wrapf(errors.ErrInput, "coin data too short: %d bytes", len(data))
	}
	c.Amount = int64(binary.BigEndian.Uint64(data))
	c.Ticker = string(data[8:])
	return nil
}

// add64 adds two int64 numbers. If the result overflows the int64 range the
// ErrOverflow is returned.
func add64(a, b int64) (int64, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	return c, nil
}

// mul64 multiplies two int64 numbers. If the result overflows the int64
// range the ErrOverflow is returned.
func mul64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/a != b {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d * %d", a, b)
	}
	return c, nil
}

var _ fmt.Stringer = Coin{}
