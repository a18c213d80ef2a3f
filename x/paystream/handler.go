// Package paystream implements the payment streaming ledger. A creator
// escrows a fixed amount which accrues to one or more recipients at
// individually fixed per second rates. Recipients claim their accrued
// balance at any time, the creator may remove a single recipient or cancel
// the whole stream early, each settling outstanding balances exactly once.
//
// There is no background ticker. Accrual is recomputed on demand from the
// stored timestamps and the operation time carried in the context, so two
// back to back claims can never both collect the same balance.
package paystream

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/x/cash"
)

// Handler implements all stream operations on top of a cash controller.
// Every mutating method applies its bookkeeping to the store before it
// moves any funds, so a failing transfer aborts the whole operation when
// run under a cache wrap.
type Handler struct {
	bucket StreamBucket
	cash   cash.Controller
}

func NewHandler(ctrl cash.Controller) *Handler {
	return &Handler{
		bucket: NewStreamBucket(),
		cash:   ctrl,
	}
}

// CreateStream validates the request, pulls the total escrow from the
// signer through their allowance to ModuleAddress and stores the new
// stream. Returns the assigned stream id.
func (h *Handler) CreateStream(ctx context.Context, db streamfi.KVStore, msg *CreateStreamMsg) (int64, error) {
	if err := msg.Validate(); err != nil {
		return 0, err
	}
	creator, err := streamfi.MustSigner(ctx)
	if err != nil {
		return 0, err
	}
	now, err := streamfi.Now(ctx)
	if err != nil {
		return 0, err
	}
	total, err := msg.Total()
	if err != nil {
		return 0, err
	}

	recipients := make([]*RecipientEntry, len(msg.Recipients))
	for i, addr := range msg.Recipients {
		rate, _, err := msg.Amounts[i].Divide(msg.Duration)
		if err != nil {
			return 0, err
		}
		recipients[i] = &RecipientEntry{
			Recipient: addr.Clone(),
			Amount:    msg.Amounts[i],
			Rate:      rate,
			Claimed:   msg.Amounts[i].WithTicker(0),
			Active:    true,
		}
	}
	stream := &Stream{
		Creator:    creator.Clone(),
		Total:      total,
		Duration:   msg.Duration,
		Start:      now,
		Stop:       now.Add(asSeconds(msg.Duration)),
		Active:     true,
		Recipients: recipients,
	}

	id, err := h.bucket.Create(db, stream)
	if err != nil {
		return 0, err
	}
	// fund the escrow last, state first
	if err := h.cash.MoveWithAllowance(db, creator, ModuleAddress(), StreamAccount(id), total); err != nil {
		return 0, errors.Wrap(err, "cannot fund stream")
	}
	return id, nil
}

// ClaimPayment pays the signer their accrued but unclaimed balance on the
// given stream. Claimed is advanced and saved before the funds move.
func (h *Handler) ClaimPayment(ctx context.Context, db streamfi.KVStore, streamID int64) (coin.Coin, error) {
	recipient, err := streamfi.MustSigner(ctx)
	if err != nil {
		return coin.Coin{}, err
	}
	now, err := streamfi.Now(ctx)
	if err != nil {
		return coin.Coin{}, err
	}

	stream, err := h.loadActive(db, streamID)
	if err != nil {
		return coin.Coin{}, err
	}
	entry := stream.Entry(recipient)
	if entry == nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrNotFound, "recipient %s on stream %d", recipient, streamID)
	}
	if !entry.Active {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "recipient %s removed from stream %d", recipient, streamID)
	}

	claimable, err := Accrued(stream, entry, now)
	if err != nil {
		return coin.Coin{}, err
	}
	if !claimable.IsPositive() {
		return coin.Coin{}, errors.Wrapf(errors.ErrEmptyClaim, "stream %d", streamID)
	}

	claimed, err := entry.Claimed.Add(claimable)
	if err != nil {
		return coin.Coin{}, err
	}
	entry.Claimed = claimed
	if err := h.bucket.Save(db, streamID, stream); err != nil {
		return coin.Coin{}, err
	}

	if err := h.cash.MoveCoins(db, StreamAccount(streamID), recipient, claimable); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot pay claim")
	}
	return claimable, nil
}

// RemoveRecipient deactivates one recipient entry and refunds the creator
// everything the recipient never claimed, including any balance already
// accrued but not withdrawn. Only the creator may call.
func (h *Handler) RemoveRecipient(ctx context.Context, db streamfi.KVStore, streamID int64, recipient streamfi.Address) (coin.Coin, error) {
	stream, err := h.loadActive(db, streamID)
	if err != nil {
		return coin.Coin{}, err
	}
	if err := h.creatorOnly(ctx, stream); err != nil {
		return coin.Coin{}, err
	}
	entry := stream.Entry(recipient)
	if entry == nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrNotFound, "recipient %s on stream %d", recipient, streamID)
	}
	if !entry.Active {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "recipient %s already removed from stream %d", recipient, streamID)
	}

	refund, err := entry.Remaining()
	if err != nil {
		return coin.Coin{}, err
	}
	entry.Active = false
	if err := h.bucket.Save(db, streamID, stream); err != nil {
		return coin.Coin{}, err
	}

	// a fully claimed entry leaves nothing to refund
	if refund.IsPositive() {
		if err := h.cash.MoveCoins(db, StreamAccount(streamID), stream.Creator, refund); err != nil {
			return coin.Coin{}, errors.Wrap(err, "cannot refund creator")
		}
	}
	return refund, nil
}

// CancelStream deactivates the stream and every still active entry,
// refunding the creator the sum of all unclaimed entitlements. Terminal:
// no claim, removal or cancellation may succeed afterwards.
func (h *Handler) CancelStream(ctx context.Context, db streamfi.KVStore, streamID int64) (coin.Coin, error) {
	stream, err := h.loadActive(db, streamID)
	if err != nil {
		return coin.Coin{}, err
	}
	if err := h.creatorOnly(ctx, stream); err != nil {
		return coin.Coin{}, err
	}

	refund := stream.Total.WithTicker(0)
	for _, entry := range stream.Recipients {
		if !entry.Active {
			// already settled on removal
			continue
		}
		remaining, err := entry.Remaining()
		if err != nil {
			return coin.Coin{}, err
		}
		refund, err = refund.Add(remaining)
		if err != nil {
			return coin.Coin{}, err
		}
		entry.Active = false
	}
	stream.Active = false
	if err := h.bucket.Save(db, streamID, stream); err != nil {
		return coin.Coin{}, err
	}

	if refund.IsPositive() {
		if err := h.cash.MoveCoins(db, StreamAccount(streamID), stream.Creator, refund); err != nil {
			return coin.Coin{}, errors.Wrap(err, "cannot refund creator")
		}
	}
	return refund, nil
}

// GetStream loads a stream by id.
func (h *Handler) GetStream(db streamfi.KVStore, streamID int64) (*Stream, error) {
	stream, err := h.bucket.Get(db, streamID)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "stream %d", streamID)
	}
	return stream, nil
}

// AccumulatedBalance returns the recipient's currently claimable amount.
// Zero for removed recipients and immediately after a claim.
func (h *Handler) AccumulatedBalance(ctx context.Context, db streamfi.KVStore, streamID int64, recipient streamfi.Address) (coin.Coin, error) {
	now, err := streamfi.Now(ctx)
	if err != nil {
		return coin.Coin{}, err
	}
	stream, err := h.GetStream(db, streamID)
	if err != nil {
		return coin.Coin{}, err
	}
	entry := stream.Entry(recipient)
	if entry == nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrNotFound, "recipient %s on stream %d", recipient, streamID)
	}
	return Accrued(stream, entry, now)
}

// StreamRecipients returns every identity ever attached to the stream.
func (h *Handler) StreamRecipients(db streamfi.KVStore, streamID int64) ([]streamfi.Address, error) {
	stream, err := h.GetStream(db, streamID)
	if err != nil {
		return nil, err
	}
	addrs := make([]streamfi.Address, len(stream.Recipients))
	for i, e := range stream.Recipients {
		addrs[i] = e.Recipient
	}
	return addrs, nil
}

// RecipientDetails returns the stored entry of one recipient.
func (h *Handler) RecipientDetails(db streamfi.KVStore, streamID int64, recipient streamfi.Address) (*RecipientEntry, error) {
	stream, err := h.GetStream(db, streamID)
	if err != nil {
		return nil, err
	}
	entry := stream.Entry(recipient)
	if entry == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "recipient %s on stream %d", recipient, streamID)
	}
	return entry, nil
}

// StreamCount returns the number of streams ever created.
func (h *Handler) StreamCount(db streamfi.KVStore) (int64, error) {
	return h.bucket.Count(db)
}

// StreamsByCreator returns the ids of all streams funded by the address.
func (h *Handler) StreamsByCreator(db streamfi.KVStore, creator streamfi.Address) ([]int64, error) {
	return h.bucket.ByCreator(db, creator)
}

// StreamsByRecipient returns the ids of all streams paying the address.
func (h *Handler) StreamsByRecipient(db streamfi.KVStore, recipient streamfi.Address) ([]int64, error) {
	return h.bucket.ByRecipient(db, recipient)
}

func (h *Handler) loadActive(db streamfi.KVStore, streamID int64) (*Stream, error) {
	stream, err := h.GetStream(db, streamID)
	if err != nil {
		return nil, err
	}
	if !stream.Active {
		return nil, errors.Wrapf(errors.ErrState, "stream %d is cancelled", streamID)
	}
	return stream, nil
}

func (h *Handler) creatorOnly(ctx context.Context, stream *Stream) error {
	signer, err := streamfi.MustSigner(ctx)
	if err != nil {
		return err
	}
	if !stream.Creator.Equals(signer) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not the stream creator", signer)
	}
	return nil
}
