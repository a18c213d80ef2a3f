package app

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/x/ramp"
)

// InitRampConfig installs the ramp configuration, making the signer the
// ramp owner.
func (a *App) InitRampConfig(ctx context.Context, signer streamfi.Address, cfg ramp.Config) error {
	ctx = a.opCtx(ctx, signer)
	return a.exec(ctx, "init ramp config", func(db streamfi.KVStore) ([]any, error) {
		return nil, a.ramps.InitConfig(ctx, db, cfg)
	})
}

// UpdateRampConfig replaces the ramp configuration. Owner only.
func (a *App) UpdateRampConfig(ctx context.Context, signer streamfi.Address, cfg ramp.Config) error {
	ctx = a.opCtx(ctx, signer)
	return a.exec(ctx, "update ramp config", func(db streamfi.KVStore) ([]any, error) {
		return nil, a.ramps.UpdateConfig(ctx, db, cfg)
	})
}

// CreateOnRampRequest files a request to buy tokens for fiat.
func (a *App) CreateOnRampRequest(ctx context.Context, user streamfi.Address, msg *ramp.CreateRequestMsg) (int64, error) {
	return a.createRampRequest(ctx, user, msg, a.ramps.CreateOnRampRequest)
}

// CreateOffRampRequest files a request to sell tokens for fiat. The
// tokens move into custody right away; the user must have granted an
// allowance to ramp.ModuleAddress.
func (a *App) CreateOffRampRequest(ctx context.Context, user streamfi.Address, msg *ramp.CreateRequestMsg) (int64, error) {
	return a.createRampRequest(ctx, user, msg, a.ramps.CreateOffRampRequest)
}

func (a *App) createRampRequest(
	ctx context.Context,
	user streamfi.Address,
	msg *ramp.CreateRequestMsg,
	create func(context.Context, streamfi.KVStore, *ramp.CreateRequestMsg) (int64, error),
) (int64, error) {
	ctx = a.opCtx(ctx, user)
	var id int64
	err := a.exec(ctx, "create ramp request", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if id, err = create(ctx, db, msg); err != nil {
			return nil, err
		}
		request, err := a.ramps.GetRequest(db, id)
		if err != nil {
			return nil, err
		}
		return []any{ramp.RequestCreated{
			RequestID: id,
			User:      request.User,
			Type:      request.Type,
			Amount:    request.Amount,
			FiatCents: request.FiatCents,
			Reference: request.Reference,
		}}, nil
	})
	return id, err
}

// ApproveOnRamp confirms the fiat arrived and pays the tokens out of the
// treasury. Owner only.
func (a *App) ApproveOnRamp(ctx context.Context, signer streamfi.Address, requestID int64, notes string) error {
	return a.decideRamp(ctx, signer, requestID, "approve on-ramp", func(ctx context.Context, db streamfi.KVStore) error {
		return a.ramps.ApproveOnRamp(ctx, db, requestID, notes)
	})
}

// ApproveOffRamp accepts an off-ramp and settles the custody into the
// treasury. Owner only.
func (a *App) ApproveOffRamp(ctx context.Context, signer streamfi.Address, requestID int64, notes string) error {
	return a.decideRamp(ctx, signer, requestID, "approve off-ramp", func(ctx context.Context, db streamfi.KVStore) error {
		return a.ramps.ApproveOffRamp(ctx, db, requestID, notes)
	})
}

// CompleteOffRamp records the fiat payout of an approved off-ramp. Owner
// only.
func (a *App) CompleteOffRamp(ctx context.Context, signer streamfi.Address, requestID int64, payoutRef string) error {
	return a.decideRamp(ctx, signer, requestID, "complete off-ramp", func(ctx context.Context, db streamfi.KVStore) error {
		return a.ramps.CompleteOffRamp(ctx, db, requestID, payoutRef)
	})
}

// RejectRampRequest declines a pending request, returning any custody.
// Owner only.
func (a *App) RejectRampRequest(ctx context.Context, signer streamfi.Address, requestID int64, notes string) error {
	return a.decideRamp(ctx, signer, requestID, "reject ramp request", func(ctx context.Context, db streamfi.KVStore) error {
		return a.ramps.Reject(ctx, db, requestID, notes)
	})
}

// CancelRampRequest withdraws a pending request, returning any custody.
// Requesting user only.
func (a *App) CancelRampRequest(ctx context.Context, user streamfi.Address, requestID int64) error {
	return a.decideRamp(ctx, user, requestID, "cancel ramp request", func(ctx context.Context, db streamfi.KVStore) error {
		return a.ramps.Cancel(ctx, db, requestID)
	})
}

// decideRamp runs one status transition and emits the change event.
func (a *App) decideRamp(ctx context.Context, signer streamfi.Address, requestID int64, op string, fn func(context.Context, streamfi.KVStore) error) error {
	ctx = a.opCtx(ctx, signer)
	return a.exec(ctx, op, func(db streamfi.KVStore) ([]any, error) {
		before, err := a.ramps.GetRequest(db, requestID)
		if err != nil {
			return nil, err
		}
		old := before.Status
		if err := fn(ctx, db); err != nil {
			return nil, err
		}
		after, err := a.ramps.GetRequest(db, requestID)
		if err != nil {
			return nil, err
		}
		return []any{ramp.RequestStatusChanged{
			RequestID: requestID,
			Old:       old,
			New:       after.Status,
		}}, nil
	})
}

// GetRampRequest returns the stored request.
func (a *App) GetRampRequest(requestID int64) (*ramp.Request, error) {
	var request *ramp.Request
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		request, err = a.ramps.GetRequest(db, requestID)
		return err
	})
	return request, err
}

// RampRequestsByUser returns the ids of all requests filed by the user.
func (a *App) RampRequestsByUser(user streamfi.Address) ([]int64, error) {
	var ids []int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		ids, err = a.ramps.RequestsByUser(db, user)
		return err
	})
	return ids, err
}

// RampRequestCount returns the number of requests ever filed.
func (a *App) RampRequestCount() (int64, error) {
	var count int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		count, err = a.ramps.RequestCount(db)
		return err
	})
	return count, err
}

// RampConfiguration returns the installed ramp configuration.
func (a *App) RampConfiguration() (*ramp.Config, error) {
	var cfg *ramp.Config
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		cfg, err = a.ramps.Configuration(db)
		return err
	})
	return cfg, err
}
