package paystream

import (
	"encoding/binary"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

// Binary layout of a stream:
//
//	creator (20) | total | duration (8) | start (8) | stop (8) | active (1)
//	| recipient count (4) | entries
//
// where each entry is
//
//	recipient (20) | amount | rate | claimed | active (1)
//
// and every coin is a single length byte followed by its binary encoding.

func (s *Stream) Marshal() ([]byte, error) {
	var w docWriter
	w.address(s.Creator)
	w.coin(s.Total)
	w.int64(s.Duration)
	w.int64(int64(s.Start))
	w.int64(int64(s.Stop))
	w.bool(s.Active)
	w.uint32(uint32(len(s.Recipients)))
	for _, e := range s.Recipients {
		w.address(e.Recipient)
		w.coin(e.Amount)
		w.coin(e.Rate)
		w.coin(e.Claimed)
		w.bool(e.Active)
	}
	return w.bytes()
}

func (s *Stream) Unmarshal(raw []byte) error {
	r := docReader{raw: raw}
	s.Creator = r.address()
	s.Total = r.coin()
	s.Duration = r.int64()
	s.Start = streamfi.UnixTime(r.int64())
	s.Stop = streamfi.UnixTime(r.int64())
	s.Active = r.bool()
	count := int(r.uint32())
	if r.err != nil {
		return r.err
	}
	s.Recipients = make([]*RecipientEntry, 0, count)
	for n := 0; n < count; n++ {
		e := RecipientEntry{
			Recipient: r.address(),
			Amount:    r.coin(),
			Rate:      r.coin(),
			Claimed:   r.coin(),
			Active:    r.bool(),
		}
		if r.err != nil {
			return r.err
		}
		s.Recipients = append(s.Recipients, &e)
	}
	return r.err
}

// docWriter appends fields to a byte buffer, collecting the first error.
type docWriter struct {
	buf []byte
	err error
}

func (w *docWriter) address(a streamfi.Address) {
	if w.err != nil {
		return
	}
	if len(a) != streamfi.AddressLength {
		w.err = errors.Wrapf(errors.ErrInput, "address length %d", len(a))
		return
	}
	w.buf = append(w.buf, a...)
}

func (w *docWriter) coin(c coin.Coin) {
	if w.err != nil {
		return
	}
	raw, err := c.MarshalBinary()
	if err != nil {
		w.err = err
		return
	}
	w.buf = append(w.buf, byte(len(raw)))
	w.buf = append(w.buf, raw...)
}

func (w *docWriter) int64(v int64) {
	if w.err != nil {
		return
	}
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

func (w *docWriter) uint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *docWriter) bool(v bool) {
	if w.err != nil {
		return
	}
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *docWriter) bytes() ([]byte, error) {
	return w.buf, w.err
}

// docReader consumes fields from a byte buffer, collecting the first
// error and returning zero values afterwards.
type docReader struct {
	raw []byte
	err error
}

func (r *docReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.raw) < n {
		r.err = errors.Wrap(errors.ErrInput, "truncated stream encoding")
		return nil
	}
	out := r.raw[:n]
	r.raw = r.raw[n:]
	return out
}

func (r *docReader) address() streamfi.Address {
	raw := r.take(streamfi.AddressLength)
	if raw == nil {
		return nil
	}
	return append(streamfi.Address{}, raw...)
}

func (r *docReader) coin() coin.Coin {
	var c coin.Coin
	l := r.take(1)
	if l == nil {
		return c
	}
	raw := r.take(int(l[0]))
	if raw == nil {
		return c
	}
	if err := c.UnmarshalBinary(raw); err != nil {
		r.err = err
	}
	return c
}

func (r *docReader) int64() int64 {
	raw := r.take(8)
	if raw == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}

func (r *docReader) uint32() uint32 {
	raw := r.take(4)
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint32(raw)
}

func (r *docReader) bool() bool {
	raw := r.take(1)
	if raw == nil {
		return false
	}
	return raw[0] == 1
}
