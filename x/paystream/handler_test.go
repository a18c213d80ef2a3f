package paystream

import (
	"context"
	"testing"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/store"
	"github.com/streamfi/streamfi/x/cash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creator = streamfi.Condition("sigs/ed25519/creator").Address()
	rcpt1   = streamfi.Condition("sigs/ed25519/rcpt_one").Address()
	rcpt2   = streamfi.Condition("sigs/ed25519/rcpt_two").Address()
	rando   = streamfi.Condition("sigs/ed25519/rando").Address()
)

func frnk(amount int64) coin.Coin {
	return coin.NewCoin(amount, "FRNK")
}

type fixture struct {
	db   streamfi.CacheableKVStore
	ctrl cash.CashController
	h    *Handler
}

// newFixture funds the creator and grants the module a spending allowance,
// the setup every stream creation needs.
func newFixture(t *testing.T, funds int64) *fixture {
	t.Helper()
	f := &fixture{
		db:   store.MemStore(),
		ctrl: cash.NewController(),
	}
	f.h = NewHandler(f.ctrl)
	require.NoError(t, f.ctrl.IssueCoins(f.db, creator, frnk(funds)))
	allowance, err := coin.NewCoins(frnk(funds))
	require.NoError(t, err)
	require.NoError(t, f.ctrl.SetAllowance(f.db, creator, ModuleAddress(), allowance))
	return f
}

func at(signer streamfi.Address, now int64) context.Context {
	ctx := streamfi.WithNow(context.Background(), streamfi.UnixTime(now))
	return streamfi.WithSigner(ctx, signer)
}

func (f *fixture) create(t *testing.T, ctx context.Context, msg *CreateStreamMsg) int64 {
	t.Helper()
	id, err := f.h.CreateStream(ctx, f.db, msg)
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, addr streamfi.Address) int64 {
	t.Helper()
	cs, err := f.ctrl.Balance(f.db, addr)
	require.NoError(t, err)
	return cs.Amount("FRNK").Amount
}

func TestCreateStreamValidation(t *testing.T) {
	f := newFixture(t, 1000)

	cases := map[string]struct {
		msg     CreateStreamMsg
		wantErr *errors.Error
	}{
		"mismatched lengths": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1, rcpt2}, Amounts: []coin.Coin{frnk(10)}, Duration: 10},
			wantErr: errors.ErrInput,
		},
		"no recipients": {
			msg:     CreateStreamMsg{Duration: 10},
			wantErr: errors.ErrEmpty,
		},
		"zero duration": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1}, Amounts: []coin.Coin{frnk(10)}},
			wantErr: errors.ErrInput,
		},
		"zero amount": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1}, Amounts: []coin.Coin{frnk(0)}, Duration: 10},
			wantErr: errors.ErrAmount,
		},
		"negative amount": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1}, Amounts: []coin.Coin{frnk(-10)}, Duration: 10},
			wantErr: errors.ErrAmount,
		},
		"duplicate recipient": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1, rcpt1}, Amounts: []coin.Coin{frnk(10), frnk(20)}, Duration: 10},
			wantErr: errors.ErrDuplicate,
		},
		"mixed tickers": {
			msg:     CreateStreamMsg{Recipients: []streamfi.Address{rcpt1, rcpt2}, Amounts: []coin.Coin{frnk(10), coin.NewCoin(10, "USDX")}, Duration: 10},
			wantErr: errors.ErrCurrency,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.h.CreateStream(at(creator, 0), f.db, &tc.msg)
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)

			// nothing is created on failure
			count, err := f.h.StreamCount(f.db)
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})
	}
}

func TestCreateStreamFunding(t *testing.T) {
	f := newFixture(t, 100)

	// total above the allowance cannot fund; the operation runs on a
	// scratch pad that is thrown away, like the application facade does
	cache := f.db.CacheWrap()
	_, err := f.h.CreateStream(at(creator, 0), cache, &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})
	assert.True(t, errors.ErrInsufficientAllowance.Is(err))
	cache.Discard()

	count, err := f.h.StreamCount(f.db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	id := f.create(t, at(creator, 7), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1},
		Amounts:    []coin.Coin{frnk(100)},
		Duration:   50,
	})
	assert.Equal(t, int64(1), id)

	// full total escrowed on the stream account
	assert.Equal(t, int64(0), f.balance(t, creator))
	assert.Equal(t, int64(100), f.balance(t, StreamAccount(id)))

	stream, err := f.h.GetStream(f.db, id)
	require.NoError(t, err)
	assert.True(t, stream.Active)
	assert.Equal(t, streamfi.UnixTime(7), stream.Start)
	assert.Equal(t, streamfi.UnixTime(57), stream.Stop)
	assert.Equal(t, frnk(100), stream.Total)
}

func TestAccrualRates(t *testing.T) {
	// amounts 100 and 50 over 100 seconds: rates 1 and 0, the second
	// entitlement surfaces entirely at stop time
	f := newFixture(t, 150)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})

	stream, err := f.h.GetStream(f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(1), stream.Entry(rcpt1).Rate)
	assert.Equal(t, frnk(0), stream.Entry(rcpt2).Rate)

	get := func(addr streamfi.Address, now int64) int64 {
		c, err := f.h.AccumulatedBalance(at(addr, now), f.db, id, addr)
		require.NoError(t, err)
		return c.Amount
	}

	assert.Equal(t, int64(0), get(rcpt1, 0))
	assert.Equal(t, int64(40), get(rcpt1, 40))
	assert.Equal(t, int64(0), get(rcpt2, 40))
	assert.Equal(t, int64(0), get(rcpt2, 99))
	assert.Equal(t, int64(100), get(rcpt1, 100))
	assert.Equal(t, int64(50), get(rcpt2, 100))
	// nothing accrues past stop time
	assert.Equal(t, int64(50), get(rcpt2, 5000))
}

func TestClaimPayment(t *testing.T) {
	f := newFixture(t, 100)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1},
		Amounts:    []coin.Coin{frnk(100)},
		Duration:   10,
	})

	// claim half way
	got, err := f.h.ClaimPayment(at(rcpt1, 5), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(50), got)
	assert.Equal(t, int64(50), f.balance(t, rcpt1))

	// immediately after a claim there is nothing to collect
	left, err := f.h.AccumulatedBalance(at(rcpt1, 5), f.db, id, rcpt1)
	require.NoError(t, err)
	assert.True(t, left.IsZero())
	_, err = f.h.ClaimPayment(at(rcpt1, 5), f.db, id)
	assert.True(t, errors.ErrEmptyClaim.Is(err))

	// the rest at stop time
	got, err = f.h.ClaimPayment(at(rcpt1, 10), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(50), got)
	assert.Equal(t, int64(100), f.balance(t, rcpt1))

	// fully claimed, nothing more ever
	_, err = f.h.ClaimPayment(at(rcpt1, 11), f.db, id)
	assert.True(t, errors.ErrEmptyClaim.Is(err))

	// escrow is drained
	assert.Equal(t, int64(0), f.balance(t, StreamAccount(id)))

	// strangers cannot claim
	_, err = f.h.ClaimPayment(at(rando, 11), f.db, id)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestRemoveRecipient(t *testing.T) {
	f := newFixture(t, 150)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})

	// only the creator may remove
	_, err := f.h.RemoveRecipient(at(rcpt1, 40), f.db, id, rcpt1)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	// rcpt1 claims 40, then is removed at t=60 with 20 accrued unclaimed.
	// The refund is everything unclaimed, the accrued part is forfeited.
	_, err = f.h.ClaimPayment(at(rcpt1, 40), f.db, id)
	require.NoError(t, err)

	refund, err := f.h.RemoveRecipient(at(creator, 60), f.db, id, rcpt1)
	require.NoError(t, err)
	assert.Equal(t, frnk(60), refund)
	assert.Equal(t, int64(60), f.balance(t, creator))

	// no further accrual and no claims for the removed recipient
	acc, err := f.h.AccumulatedBalance(at(rcpt1, 90), f.db, id, rcpt1)
	require.NoError(t, err)
	assert.True(t, acc.IsZero())
	_, err = f.h.ClaimPayment(at(rcpt1, 90), f.db, id)
	assert.True(t, errors.ErrState.Is(err))

	// removing twice fails
	_, err = f.h.RemoveRecipient(at(creator, 61), f.db, id, rcpt1)
	assert.True(t, errors.ErrState.Is(err))

	// unknown recipients cannot be removed
	_, err = f.h.RemoveRecipient(at(creator, 61), f.db, id, rando)
	assert.True(t, errors.ErrNotFound.Is(err))

	// the other recipient is untouched and still collects at stop time
	got, err := f.h.ClaimPayment(at(rcpt2, 100), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(50), got)
}

func TestCancelStream(t *testing.T) {
	f := newFixture(t, 100)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1},
		Amounts:    []coin.Coin{frnk(100)},
		Duration:   100,
	})

	// only the creator may cancel
	_, err := f.h.CancelStream(at(rcpt1, 30), f.db, id)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	// nothing claimed: the whole escrow comes back
	refund, err := f.h.CancelStream(at(creator, 30), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(100), refund)
	assert.Equal(t, int64(100), f.balance(t, creator))
	assert.Equal(t, int64(0), f.balance(t, StreamAccount(id)))

	// terminal: no claim, removal or second cancel succeeds
	_, err = f.h.ClaimPayment(at(rcpt1, 50), f.db, id)
	assert.True(t, errors.ErrState.Is(err))
	_, err = f.h.RemoveRecipient(at(creator, 50), f.db, id, rcpt1)
	assert.True(t, errors.ErrState.Is(err))
	_, err = f.h.CancelStream(at(creator, 50), f.db, id)
	assert.True(t, errors.ErrState.Is(err))

	// the record survives cancellation for historical queries
	stream, err := f.h.GetStream(f.db, id)
	require.NoError(t, err)
	assert.False(t, stream.Active)
	assert.False(t, stream.Entry(rcpt1).Active)
}

func TestCancelAfterPartialClaims(t *testing.T) {
	f := newFixture(t, 150)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})

	_, err := f.h.ClaimPayment(at(rcpt1, 30), f.db, id)
	require.NoError(t, err)

	// removed entries are already settled and contribute nothing
	_, err = f.h.RemoveRecipient(at(creator, 40), f.db, id, rcpt2)
	require.NoError(t, err)

	refund, err := f.h.CancelStream(at(creator, 50), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, frnk(70), refund)

	// conservation: claimed + refunded == total escrowed
	assert.Equal(t, int64(30), f.balance(t, rcpt1))
	assert.Equal(t, int64(120), f.balance(t, creator))
	assert.Equal(t, int64(0), f.balance(t, StreamAccount(id)))
}

func TestConservation(t *testing.T) {
	f := newFixture(t, 150)
	id := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})

	check := func() {
		t.Helper()
		stream, err := f.h.GetStream(f.db, id)
		require.NoError(t, err)
		claimed := int64(0)
		for _, e := range stream.Recipients {
			claimed += e.Claimed.Amount
		}
		escrow := f.balance(t, StreamAccount(id))
		refunded := f.balance(t, creator)
		assert.Equal(t, stream.Total.Amount, claimed+escrow+refunded)
	}

	check()
	_, err := f.h.ClaimPayment(at(rcpt1, 25), f.db, id)
	require.NoError(t, err)
	check()
	_, err = f.h.ClaimPayment(at(rcpt1, 70), f.db, id)
	require.NoError(t, err)
	check()
	_, err = f.h.RemoveRecipient(at(creator, 80), f.db, id, rcpt2)
	require.NoError(t, err)
	check()
	_, err = f.h.CancelStream(at(creator, 90), f.db, id)
	require.NoError(t, err)
	check()
}

func TestQueries(t *testing.T) {
	f := newFixture(t, 300)

	first := f.create(t, at(creator, 0), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1, rcpt2},
		Amounts:    []coin.Coin{frnk(100), frnk(50)},
		Duration:   100,
	})
	second := f.create(t, at(creator, 10), &CreateStreamMsg{
		Recipients: []streamfi.Address{rcpt1},
		Amounts:    []coin.Coin{frnk(150)},
		Duration:   10,
	})

	count, err := f.h.StreamCount(f.db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	byCreator, err := f.h.StreamsByCreator(f.db, creator)
	require.NoError(t, err)
	assert.Equal(t, []int64{first, second}, byCreator)

	byRcpt, err := f.h.StreamsByRecipient(f.db, rcpt1)
	require.NoError(t, err)
	assert.Equal(t, []int64{first, second}, byRcpt)

	byRcpt, err = f.h.StreamsByRecipient(f.db, rcpt2)
	require.NoError(t, err)
	assert.Equal(t, []int64{first}, byRcpt)

	byRcpt, err = f.h.StreamsByRecipient(f.db, rando)
	require.NoError(t, err)
	assert.Empty(t, byRcpt)

	addrs, err := f.h.StreamRecipients(f.db, first)
	require.NoError(t, err)
	assert.Equal(t, []streamfi.Address{rcpt1, rcpt2}, addrs)

	details, err := f.h.RecipientDetails(f.db, first, rcpt2)
	require.NoError(t, err)
	assert.Equal(t, frnk(50), details.Amount)
	assert.True(t, details.Claimed.IsZero())
	assert.True(t, details.Active)

	_, err = f.h.GetStream(f.db, 99)
	assert.True(t, errors.ErrNotFound.Is(err))
	_, err = f.h.RecipientDetails(f.db, second, rcpt2)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestStreamCodecRoundTrip(t *testing.T) {
	stream := &Stream{
		Creator:  creator,
		Total:    frnk(150),
		Duration: 100,
		Start:    4000,
		Stop:     4100,
		Active:   true,
		Recipients: []*RecipientEntry{
			{Recipient: rcpt1, Amount: frnk(100), Rate: frnk(1), Claimed: frnk(40), Active: true},
			{Recipient: rcpt2, Amount: frnk(50), Rate: frnk(0), Claimed: frnk(0), Active: false},
		},
	}
	raw, err := stream.Marshal()
	require.NoError(t, err)

	var loaded Stream
	require.NoError(t, loaded.Unmarshal(raw))
	assert.Equal(t, stream, &loaded)

	var bad Stream
	assert.Error(t, bad.Unmarshal(raw[:len(raw)-3]))
}
