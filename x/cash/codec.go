package cash

import (
	"encoding/binary"

	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
)

// marshalCoins serializes a coin set as a count followed by length-prefixed
// coin encodings.
func marshalCoins(cs coin.Coins) ([]byte, error) {
	out := make([]byte, 4, 4+len(cs)*13)
	binary.BigEndian.PutUint32(out, uint32(len(cs)))
	for _, c := range cs {
		raw, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, byte(len(raw)))
		out = append(out, raw...)
	}
	return out, nil
}

func unmarshalCoins(raw []byte) (coin.Coins, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) < 4 {
		return nil, errors.Wrap(errors.ErrInput, "truncated coin set")
	}
	count := int(binary.BigEndian.Uint32(raw))
	offset := 4
	cs := make(coin.Coins, 0, count)
	for n := 0; n < count; n++ {
		if len(raw) < offset+1 {
			return nil, errors.Wrap(errors.ErrInput, "truncated coin set")
		}
		l := int(raw[offset])
		offset++
		if len(raw) < offset+l {
			return nil, errors.Wrap(errors.ErrInput, "truncated coin set")
		}
		var c coin.Coin
		if err := c.UnmarshalBinary(raw[offset : offset+l]); err != nil {
			return nil, err
		}
		offset += l
		cs = append(cs, &c)
	}
	return cs, nil
}
