// Package ramp implements a fiat on/off-ramp request workflow. Users file
// requests to buy tokens for fiat (on-ramp) or sell tokens for fiat
// (off-ramp); the configured owner approves or rejects them. Token
// settlement runs against the treasury, the fiat side happens outside and
// is only recorded here. Off-ramp deposits are held in a custody account
// until the request is decided.
package ramp

import (
	"context"

	"github.com/google/uuid"
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/x/cash"
)

// CreateRequestMsg files a new on or off-ramp request.
type CreateRequestMsg struct {
	Amount coin.Coin
	// Currency is the ISO fiat currency code the user pays or receives.
	Currency       string
	PaymentMethod  string
	PaymentDetails string
	// Wallet receives the tokens of an on-ramp, ignored for off-ramps.
	Wallet    streamfi.Address
	UserNotes string
}

func (m *CreateRequestMsg) Validate() error {
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !m.Amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "amount %v", &m.Amount)
	}
	if len(m.Currency) != 3 {
		return errors.Wrapf(errors.ErrInput, "currency %q", m.Currency)
	}
	if m.PaymentMethod == "" {
		return errors.Wrap(errors.ErrEmpty, "missing payment method")
	}
	return nil
}

// Handler implements the ramp workflow on top of a cash controller.
type Handler struct {
	requests RequestBucket
	config   ConfigBucket
	cash     cash.Controller
}

func NewHandler(ctrl cash.Controller) *Handler {
	return &Handler{
		requests: NewRequestBucket(),
		config:   NewConfigBucket(),
		cash:     ctrl,
	}
}

// InitConfig installs the initial configuration. The signer becomes the
// owner. Fails if a configuration is already installed.
func (h *Handler) InitConfig(ctx context.Context, db streamfi.KVStore, cfg Config) error {
	signer, err := streamfi.MustSigner(ctx)
	if err != nil {
		return err
	}
	existing, err := h.config.Get(db)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Wrap(errors.ErrDuplicate, "configuration already installed")
	}
	cfg.Owner = signer.Clone()
	return h.config.Save(db, &cfg)
}

// UpdateConfig replaces the configuration. Only the current owner may
// call. Ownership can be handed over by setting a different owner.
func (h *Handler) UpdateConfig(ctx context.Context, db streamfi.KVStore, cfg Config) error {
	current, err := h.ownerConfig(ctx, db)
	if err != nil {
		return err
	}
	if cfg.Owner == nil {
		cfg.Owner = current.Owner
	}
	return h.config.Save(db, &cfg)
}

// CreateOnRampRequest files a request to buy tokens for fiat. The fiat
// cost including the fee is fixed now, settlement happens on approval.
func (h *Handler) CreateOnRampRequest(ctx context.Context, db streamfi.KVStore, msg *CreateRequestMsg) (int64, error) {
	user, now, cfg, err := h.creationContext(ctx, db, msg)
	if err != nil {
		return 0, err
	}
	if err := checkBounds(msg.Amount, cfg.MinOnRamp, cfg.MaxOnRamp); err != nil {
		return 0, err
	}
	wallet := msg.Wallet
	if wallet == nil {
		wallet = user
	}
	if err := wallet.Validate(); err != nil {
		return 0, errors.Wrap(err, "wallet")
	}

	request := &Request{
		User:           user.Clone(),
		Type:           OnRamp,
		Status:         Pending,
		Amount:         msg.Amount,
		FiatCents:      cfg.OnRampCostCents(msg.Amount),
		Currency:       msg.Currency,
		PaymentMethod:  msg.PaymentMethod,
		PaymentDetails: msg.PaymentDetails,
		Wallet:         wallet.Clone(),
		UserNotes:      msg.UserNotes,
		Reference:      uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return h.requests.Create(db, request)
}

// CreateOffRampRequest files a request to sell tokens for fiat. The tokens
// are pulled from the user into custody right away so an approved payout
// can always settle.
func (h *Handler) CreateOffRampRequest(ctx context.Context, db streamfi.KVStore, msg *CreateRequestMsg) (int64, error) {
	user, now, cfg, err := h.creationContext(ctx, db, msg)
	if err != nil {
		return 0, err
	}
	if err := checkBounds(msg.Amount, cfg.MinOffRamp, cfg.MaxOffRamp); err != nil {
		return 0, err
	}

	request := &Request{
		User:           user.Clone(),
		Type:           OffRamp,
		Status:         Pending,
		Amount:         msg.Amount,
		FiatCents:      cfg.OffRampPayoutCents(msg.Amount),
		Currency:       msg.Currency,
		PaymentMethod:  msg.PaymentMethod,
		PaymentDetails: msg.PaymentDetails,
		UserNotes:      msg.UserNotes,
		Reference:      uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := h.requests.Create(db, request)
	if err != nil {
		return 0, err
	}
	if err := h.cash.MoveWithAllowance(db, user, ModuleAddress(), CustodyAddress(), msg.Amount); err != nil {
		return 0, errors.Wrap(err, "cannot take custody")
	}
	return id, nil
}

// ApproveOnRamp settles an on-ramp: the owner confirms the fiat arrived
// and the treasury pays the tokens out to the request wallet. Terminal.
func (h *Handler) ApproveOnRamp(ctx context.Context, db streamfi.KVStore, requestID int64, notes string) error {
	cfg, request, err := h.decisionContext(ctx, db, requestID, OnRamp)
	if err != nil {
		return err
	}
	if err := h.transition(ctx, db, requestID, request, Completed, notes); err != nil {
		return err
	}
	if err := h.cash.MoveCoins(db, cfg.Treasury, request.Wallet, request.Amount); err != nil {
		return errors.Wrap(err, "cannot pay out treasury")
	}
	return nil
}

// ApproveOffRamp accepts an off-ramp: custody moves to the treasury and
// the request waits in Approved until the fiat payout is confirmed with
// CompleteOffRamp.
func (h *Handler) ApproveOffRamp(ctx context.Context, db streamfi.KVStore, requestID int64, notes string) error {
	cfg, request, err := h.decisionContext(ctx, db, requestID, OffRamp)
	if err != nil {
		return err
	}
	if err := h.transition(ctx, db, requestID, request, Approved, notes); err != nil {
		return err
	}
	if err := h.cash.MoveCoins(db, CustodyAddress(), cfg.Treasury, request.Amount); err != nil {
		return errors.Wrap(err, "cannot settle custody")
	}
	return nil
}

// CompleteOffRamp records that the fiat payout of an approved off-ramp
// happened. Terminal.
func (h *Handler) CompleteOffRamp(ctx context.Context, db streamfi.KVStore, requestID int64, payoutRef string) error {
	if _, err := h.ownerConfig(ctx, db); err != nil {
		return err
	}
	request, err := h.GetRequest(db, requestID)
	if err != nil {
		return err
	}
	if request.Type != OffRamp {
		return errors.Wrapf(errors.ErrInput, "request %d is not an off-ramp", requestID)
	}
	if request.Status != Approved {
		return errors.Wrapf(errors.ErrState, "request %d is %s", requestID, request.Status)
	}
	return h.transition(ctx, db, requestID, request, Completed, payoutRef)
}

// Reject declines a pending request. Off-ramp custody is returned to the
// user. Terminal.
func (h *Handler) Reject(ctx context.Context, db streamfi.KVStore, requestID int64, notes string) error {
	if _, err := h.ownerConfig(ctx, db); err != nil {
		return err
	}
	request, err := h.pendingRequest(db, requestID)
	if err != nil {
		return err
	}
	if err := h.transition(ctx, db, requestID, request, Rejected, notes); err != nil {
		return err
	}
	return h.releaseCustody(db, request)
}

// Cancel withdraws a pending request. Only the requesting user may call.
// Off-ramp custody is returned. Terminal.
func (h *Handler) Cancel(ctx context.Context, db streamfi.KVStore, requestID int64) error {
	signer, err := streamfi.MustSigner(ctx)
	if err != nil {
		return err
	}
	request, err := h.pendingRequest(db, requestID)
	if err != nil {
		return err
	}
	if !request.User.Equals(signer) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s did not file request %d", signer, requestID)
	}
	if err := h.transition(ctx, db, requestID, request, Cancelled, ""); err != nil {
		return err
	}
	return h.releaseCustody(db, request)
}

// GetRequest loads a request by id.
func (h *Handler) GetRequest(db streamfi.KVStore, requestID int64) (*Request, error) {
	request, err := h.requests.Get(db, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "request %d", requestID)
	}
	return request, nil
}

// RequestsByUser returns the ids of all requests filed by the address.
func (h *Handler) RequestsByUser(db streamfi.KVStore, user streamfi.Address) ([]int64, error) {
	return h.requests.ByUser(db, user)
}

// RequestCount returns the number of requests ever filed.
func (h *Handler) RequestCount(db streamfi.KVStore) (int64, error) {
	return h.requests.Count(db)
}

// Configuration returns the installed config.
func (h *Handler) Configuration(db streamfi.KVStore) (*Config, error) {
	return h.mustConfig(db)
}

func (h *Handler) mustConfig(db streamfi.KVStore) (*Config, error) {
	cfg, err := h.config.Get(db)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "no configuration installed")
	}
	return cfg, nil
}

// ownerConfig loads the config and ensures the signer is the owner.
func (h *Handler) ownerConfig(ctx context.Context, db streamfi.KVStore) (*Config, error) {
	signer, err := streamfi.MustSigner(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := h.mustConfig(db)
	if err != nil {
		return nil, err
	}
	if !cfg.Owner.Equals(signer) {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "%s is not the ramp owner", signer)
	}
	return cfg, nil
}

func (h *Handler) creationContext(ctx context.Context, db streamfi.KVStore, msg *CreateRequestMsg) (streamfi.Address, streamfi.UnixTime, *Config, error) {
	if err := msg.Validate(); err != nil {
		return nil, 0, nil, err
	}
	user, err := streamfi.MustSigner(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	now, err := streamfi.Now(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	cfg, err := h.mustConfig(db)
	if err != nil {
		return nil, 0, nil, err
	}
	return user, now, cfg, nil
}

// decisionContext authorizes the owner and loads a pending request of the
// expected type.
func (h *Handler) decisionContext(ctx context.Context, db streamfi.KVStore, requestID int64, typ RequestType) (*Config, *Request, error) {
	cfg, err := h.ownerConfig(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	request, err := h.pendingRequest(db, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request.Type != typ {
		return nil, nil, errors.Wrapf(errors.ErrInput, "request %d is not an %s", requestID, typ)
	}
	return cfg, request, nil
}

func (h *Handler) pendingRequest(db streamfi.KVStore, requestID int64) (*Request, error) {
	request, err := h.GetRequest(db, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != Pending {
		return nil, errors.Wrapf(errors.ErrState, "request %d is %s", requestID, request.Status)
	}
	return request, nil
}

// transition moves the request into the new status and saves it before
// any funds move.
func (h *Handler) transition(ctx context.Context, db streamfi.KVStore, requestID int64, request *Request, status Status, notes string) error {
	now, err := streamfi.Now(ctx)
	if err != nil {
		return err
	}
	request.Status = status
	request.UpdatedAt = now
	if notes != "" {
		request.AdminNotes = notes
	}
	return h.requests.Save(db, requestID, request)
}

// releaseCustody returns an off-ramp deposit to the user.
func (h *Handler) releaseCustody(db streamfi.KVStore, request *Request) error {
	if request.Type != OffRamp {
		return nil
	}
	if err := h.cash.MoveCoins(db, CustodyAddress(), request.User, request.Amount); err != nil {
		return errors.Wrap(err, "cannot release custody")
	}
	return nil
}

func checkBounds(amount, min, max coin.Coin) error {
	if !amount.SameType(min) {
		return errors.Wrapf(errors.ErrCurrency, "ticker %s", amount.Ticker)
	}
	if !amount.IsGTE(min) {
		return errors.Wrapf(errors.ErrAmount, "%v below the minimum %v", &amount, &min)
	}
	if !max.IsGTE(amount) {
		return errors.Wrapf(errors.ErrAmount, "%v above the maximum %v", &amount, &max)
	}
	return nil
}
