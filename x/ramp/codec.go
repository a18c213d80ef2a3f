package ramp

import (
	"encoding/binary"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

// Requests and the config are stored with the same field encoding as the
// other modules: fixed width integers big endian, coins and strings length
// prefixed, addresses length prefixed since the off-ramp wallet may be
// empty.

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) addr(a streamfi.Address) {
	if e.err != nil {
		return
	}
	if len(a) != 0 && len(a) != streamfi.AddressLength {
		e.err = errors.Wrapf(errors.ErrInput, "address length %d", len(a))
		return
	}
	e.buf = append(e.buf, byte(len(a)))
	e.buf = append(e.buf, a...)
}

func (e *encoder) coin(c coin.Coin) {
	if e.err != nil {
		return
	}
	raw, err := c.MarshalBinary()
	if err != nil {
		e.err = err
		return
	}
	e.buf = append(e.buf, byte(len(raw)))
	e.buf = append(e.buf, raw...)
}

func (e *encoder) str(s string) {
	if e.err != nil {
		return
	}
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) int64(v int64) {
	if e.err != nil {
		return
	}
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

func (e *encoder) byte(v byte) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, v)
}

type decoder struct {
	raw []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.raw) < n {
		d.err = errors.Wrap(errors.ErrInput, "truncated encoding")
		return nil
	}
	out := d.raw[:n]
	d.raw = d.raw[n:]
	return out
}

func (d *decoder) addr() streamfi.Address {
	l := d.take(1)
	if l == nil {
		return nil
	}
	raw := d.take(int(l[0]))
	if raw == nil {
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	return append(streamfi.Address{}, raw...)
}

func (d *decoder) coin() coin.Coin {
	var c coin.Coin
	l := d.take(1)
	if l == nil {
		return c
	}
	raw := d.take(int(l[0]))
	if raw == nil {
		return c
	}
	if err := c.UnmarshalBinary(raw); err != nil {
		d.err = err
	}
	return c
}

func (d *decoder) str() string {
	l := d.take(4)
	if l == nil {
		return ""
	}
	raw := d.take(int(binary.BigEndian.Uint32(l)))
	return string(raw)
}

func (d *decoder) int64() int64 {
	raw := d.take(8)
	if raw == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}

func (d *decoder) byte() byte {
	raw := d.take(1)
	if raw == nil {
		return 0
	}
	return raw[0]
}

func (c *Config) Marshal() ([]byte, error) {
	var e encoder
	e.addr(c.Owner)
	e.addr(c.Treasury)
	e.int64(c.RateCents)
	e.int64(c.OnRampFeePercent)
	e.int64(c.OffRampFeePercent)
	e.coin(c.MinOnRamp)
	e.coin(c.MaxOnRamp)
	e.coin(c.MinOffRamp)
	e.coin(c.MaxOffRamp)
	return e.buf, e.err
}

func (c *Config) Unmarshal(raw []byte) error {
	d := decoder{raw: raw}
	c.Owner = d.addr()
	c.Treasury = d.addr()
	c.RateCents = d.int64()
	c.OnRampFeePercent = d.int64()
	c.OffRampFeePercent = d.int64()
	c.MinOnRamp = d.coin()
	c.MaxOnRamp = d.coin()
	c.MinOffRamp = d.coin()
	c.MaxOffRamp = d.coin()
	return d.err
}

func (r *Request) Marshal() ([]byte, error) {
	var e encoder
	e.addr(r.User)
	e.byte(byte(r.Type))
	e.byte(byte(r.Status))
	e.coin(r.Amount)
	e.int64(r.FiatCents)
	e.str(r.Currency)
	e.str(r.PaymentMethod)
	e.str(r.PaymentDetails)
	e.addr(r.Wallet)
	e.str(r.UserNotes)
	e.str(r.AdminNotes)
	e.str(r.Reference)
	e.int64(int64(r.CreatedAt))
	e.int64(int64(r.UpdatedAt))
	return e.buf, e.err
}

func (r *Request) Unmarshal(raw []byte) error {
	d := decoder{raw: raw}
	r.User = d.addr()
	r.Type = RequestType(d.byte())
	r.Status = Status(d.byte())
	r.Amount = d.coin()
	r.FiatCents = d.int64()
	r.Currency = d.str()
	r.PaymentMethod = d.str()
	r.PaymentDetails = d.str()
	r.Wallet = d.addr()
	r.UserNotes = d.str()
	r.AdminNotes = d.str()
	r.Reference = d.str()
	r.CreatedAt = streamfi.UnixTime(d.int64())
	r.UpdatedAt = streamfi.UnixTime(d.int64())
	return d.err
}
