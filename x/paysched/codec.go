package paysched

import (
	"encoding/binary"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/errors"
)

// Binary layout of a schedule:
//
//	creator (20) | recipient (20) | amount | interval (8) | next (8)
//	| active (1) | total paid | payment count (8)
//
// where every coin is a single length byte followed by its binary
// encoding.

func (s *Schedule) Marshal() ([]byte, error) {
	if len(s.Creator) != streamfi.AddressLength || len(s.Recipient) != streamfi.AddressLength {
		return nil, errors.Wrap(errors.ErrInput, "malformed address")
	}
	amount, err := s.Amount.MarshalBinary()
	if err != nil {
		return nil, err
	}
	paid, err := s.TotalPaid.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 2*streamfi.AddressLength+len(amount)+len(paid)+27)
	out = append(out, s.Creator...)
	out = append(out, s.Recipient...)
	out = append(out, byte(len(amount)))
	out = append(out, amount...)
	out = binary.BigEndian.AppendUint64(out, uint64(s.Interval))
	out = binary.BigEndian.AppendUint64(out, uint64(s.NextPayment))
	if s.Active {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, byte(len(paid)))
	out = append(out, paid...)
	out = binary.BigEndian.AppendUint64(out, uint64(s.PaymentCount))
	return out, nil
}

func (s *Schedule) Unmarshal(raw []byte) error {
	take := func(n int) []byte {
		if len(raw) < n {
			return nil
		}
		out := raw[:n]
		raw = raw[n:]
		return out
	}
	short := errors.Wrap(errors.ErrInput, "truncated schedule encoding")

	addr := take(streamfi.AddressLength)
	if addr == nil {
		return short
	}
	s.Creator = append(streamfi.Address{}, addr...)
	if addr = take(streamfi.AddressLength); addr == nil {
		return short
	}
	s.Recipient = append(streamfi.Address{}, addr...)

	l := take(1)
	if l == nil {
		return short
	}
	amount := take(int(l[0]))
	if amount == nil {
		return short
	}
	if err := s.Amount.UnmarshalBinary(amount); err != nil {
		return err
	}

	chunk := take(17)
	if chunk == nil {
		return short
	}
	s.Interval = int64(binary.BigEndian.Uint64(chunk))
	s.NextPayment = streamfi.UnixTime(binary.BigEndian.Uint64(chunk[8:]))
	s.Active = chunk[16] == 1

	if l = take(1); l == nil {
		return short
	}
	paid := take(int(l[0]))
	if paid == nil {
		return short
	}
	if err := s.TotalPaid.UnmarshalBinary(paid); err != nil {
		return err
	}

	if chunk = take(8); chunk == nil {
		return short
	}
	s.PaymentCount = int64(binary.BigEndian.Uint64(chunk))
	return nil
}
