package app

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/x/paystream"
)

// CreateStream escrows the total of all entitlements from the creator and
// opens a new stream. The creator must have granted an allowance to
// paystream.ModuleAddress beforehand.
func (a *App) CreateStream(ctx context.Context, creator streamfi.Address, msg *paystream.CreateStreamMsg) (int64, error) {
	ctx = a.opCtx(ctx, creator)
	var id int64
	err := a.exec(ctx, "create stream", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if id, err = a.streams.CreateStream(ctx, db, msg); err != nil {
			return nil, err
		}
		stream, err := a.streams.GetStream(db, id)
		if err != nil {
			return nil, err
		}
		return []any{paystream.StreamCreated{
			StreamID: id,
			Creator:  stream.Creator,
			Total:    stream.Total,
			Start:    stream.Start,
			Stop:     stream.Stop,
		}}, nil
	})
	return id, err
}

// ClaimPayment pays the claimer their accrued but unclaimed balance.
func (a *App) ClaimPayment(ctx context.Context, claimer streamfi.Address, streamID int64) (coin.Coin, error) {
	ctx = a.opCtx(ctx, claimer)
	var amount coin.Coin
	err := a.exec(ctx, "claim payment", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if amount, err = a.streams.ClaimPayment(ctx, db, streamID); err != nil {
			return nil, err
		}
		return []any{paystream.PaymentClaimed{
			StreamID:  streamID,
			Recipient: claimer,
			Amount:    amount,
		}}, nil
	})
	return amount, err
}

// RemoveRecipient deactivates one recipient and refunds the creator their
// unclaimed entitlement.
func (a *App) RemoveRecipient(ctx context.Context, creator streamfi.Address, streamID int64, recipient streamfi.Address) (coin.Coin, error) {
	ctx = a.opCtx(ctx, creator)
	var refund coin.Coin
	err := a.exec(ctx, "remove recipient", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if refund, err = a.streams.RemoveRecipient(ctx, db, streamID, recipient); err != nil {
			return nil, err
		}
		return []any{paystream.RecipientRemoved{
			StreamID:  streamID,
			Recipient: recipient,
			Refund:    refund,
		}}, nil
	})
	return refund, err
}

// CancelStream terminates the stream and refunds the creator all
// unclaimed entitlements.
func (a *App) CancelStream(ctx context.Context, creator streamfi.Address, streamID int64) (coin.Coin, error) {
	ctx = a.opCtx(ctx, creator)
	var refund coin.Coin
	err := a.exec(ctx, "cancel stream", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if refund, err = a.streams.CancelStream(ctx, db, streamID); err != nil {
			return nil, err
		}
		return []any{paystream.StreamCancelled{
			StreamID: streamID,
			Creator:  creator,
			Refund:   refund,
		}}, nil
	})
	return refund, err
}

// GetStream returns the stored stream.
func (a *App) GetStream(streamID int64) (*paystream.Stream, error) {
	var stream *paystream.Stream
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		stream, err = a.streams.GetStream(db, streamID)
		return err
	})
	return stream, err
}

// AccumulatedBalance returns what the recipient could claim right now.
func (a *App) AccumulatedBalance(ctx context.Context, streamID int64, recipient streamfi.Address) (coin.Coin, error) {
	ctx = a.opCtx(ctx, nil)
	var amount coin.Coin
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		amount, err = a.streams.AccumulatedBalance(ctx, db, streamID, recipient)
		return err
	})
	return amount, err
}

// StreamRecipients returns every identity ever attached to the stream.
func (a *App) StreamRecipients(streamID int64) ([]streamfi.Address, error) {
	var addrs []streamfi.Address
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		addrs, err = a.streams.StreamRecipients(db, streamID)
		return err
	})
	return addrs, err
}

// RecipientDetails returns the entitlement, claimed amount and active flag
// of one recipient.
func (a *App) RecipientDetails(streamID int64, recipient streamfi.Address) (*paystream.RecipientEntry, error) {
	var entry *paystream.RecipientEntry
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		entry, err = a.streams.RecipientDetails(db, streamID, recipient)
		return err
	})
	return entry, err
}

// StreamCount returns the number of streams ever created.
func (a *App) StreamCount() (int64, error) {
	var count int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		count, err = a.streams.StreamCount(db)
		return err
	})
	return count, err
}

// StreamsByCreator returns the ids of all streams funded by the address.
func (a *App) StreamsByCreator(creator streamfi.Address) ([]int64, error) {
	var ids []int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		ids, err = a.streams.StreamsByCreator(db, creator)
		return err
	})
	return ids, err
}

// StreamsByRecipient returns the ids of all streams paying the address.
func (a *App) StreamsByRecipient(recipient streamfi.Address) ([]int64, error) {
	var ids []int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		ids, err = a.streams.StreamsByRecipient(db, recipient)
		return err
	})
	return ids, err
}
