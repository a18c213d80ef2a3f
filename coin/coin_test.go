package coin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfi/streamfi/errors"
)

func TestCoinAdd(t *testing.T) {
	cases := map[string]struct {
		a, b    Coin
		want    Coin
		wantErr *errors.Error
	}{
		"same currency": {
			a:    NewCoin(100, "TST"),
			b:    NewCoin(50, "TST"),
			want: NewCoin(150, "TST"),
		},
		"zero value without ticker is neutral": {
			a:    NewCoin(100, "TST"),
			b:    Coin{},
			want: NewCoin(100, "TST"),
		},
		"currency mismatch": {
			a:       NewCoin(100, "TST"),
			b:       NewCoin(1, "DOGE"),
			wantErr: errors.ErrCurrency,
		},
		"overflow": {
			a:       NewCoin(math.MaxInt64, "TST"),
			b:       NewCoin(1, "TST"),
			wantErr: errors.ErrOverflow,
		},
		"negative overflow": {
			a:       NewCoin(math.MinInt64, "TST"),
			b:       NewCoin(-1, "TST"),
			wantErr: errors.ErrOverflow,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := tc.a.Add(tc.b)
			if tc.wantErr != nil {
				require.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoinDivide(t *testing.T) {
	cases := map[string]struct {
		total    Coin
		pieces   int64
		wantOne  int64
		wantRest int64
		wantErr  *errors.Error
	}{
		"even division": {
			total:   NewCoin(100, "TST"),
			pieces:  100,
			wantOne: 1,
		},
		"amount smaller than pieces": {
			total:    NewCoin(50, "TST"),
			pieces:   100,
			wantOne:  0,
			wantRest: 50,
		},
		"remainder": {
			total:    NewCoin(100, "TST"),
			pieces:   30,
			wantOne:  3,
			wantRest: 10,
		},
		"zero pieces": {
			total:   NewCoin(100, "TST"),
			pieces:  0,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			one, rest, err := tc.total.Divide(tc.pieces)
			if tc.wantErr != nil {
				require.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOne, one.Amount)
			assert.Equal(t, tc.wantRest, rest.Amount)
			assert.Equal(t, "TST", one.Ticker)
		})
	}
}

func TestCoinMultiplyOverflow(t *testing.T) {
	_, err := NewCoin(math.MaxInt64/2+1, "TST").Multiply(2)
	require.True(t, errors.ErrOverflow.Is(err), "unexpected error: %+v", err)

	got, err := NewCoin(0, "TST").Multiply(math.MaxInt64)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCoinBinaryRoundTrip(t *testing.T) {
	src := NewCoin(-37, "DOGE")
	raw, err := src.MarshalBinary()
	require.NoError(t, err)

	var got Coin
	require.NoError(t, got.UnmarshalBinary(raw))
	assert.Equal(t, src, got)
}

func TestParseHumanFormat(t *testing.T) {
	got, err := ParseHumanFormat("250 TST")
	require.NoError(t, err)
	assert.Equal(t, NewCoin(250, "TST"), got)

	_, err = ParseHumanFormat("1.5 TST")
	require.True(t, errors.ErrInput.Is(err), "fractional values are not a thing")
}

func TestCoinsAddAndContains(t *testing.T) {
	set, err := NewCoins(NewCoin(5, "TST"), NewCoin(3, "DOGE"))
	require.NoError(t, err)

	// Sorted by ticker.
	require.Len(t, set, 2)
	assert.Equal(t, "DOGE", set[0].Ticker)
	assert.Equal(t, "TST", set[1].Ticker)

	assert.True(t, set.Contains(NewCoin(5, "TST")))
	assert.False(t, set.Contains(NewCoin(6, "TST")))
	assert.False(t, set.Contains(NewCoin(1, "BTC")))

	// Subtracting down to zero removes the entry.
	set, err = set.Subtract(NewCoin(3, "DOGE"))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "TST", set[0].Ticker)
}

func TestCoinsAddDoesNotMutateReceiver(t *testing.T) {
	orig, err := NewCoins(NewCoin(5, "TST"))
	require.NoError(t, err)

	_, err = orig.Add(NewCoin(7, "TST"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), orig.Amount("TST").Amount)
}
