package app

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/x/paysched"
)

// CreateSchedule registers a recurring payment from the creator. The
// creator must have granted an allowance to paysched.ModuleAddress
// covering the payments.
func (a *App) CreateSchedule(ctx context.Context, creator streamfi.Address, msg *paysched.CreateScheduleMsg) (int64, error) {
	ctx = a.opCtx(ctx, creator)
	var id int64
	err := a.exec(ctx, "create schedule", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if id, err = a.scheds.CreateSchedule(ctx, db, msg); err != nil {
			return nil, err
		}
		return []any{paysched.ScheduleCreated{
			ScheduleID: id,
			Creator:    creator,
			Recipient:  msg.Recipient,
			Amount:     msg.Amount,
			Interval:   msg.Interval,
		}}, nil
	})
	return id, err
}

// ExecutePayment triggers one due payment. Any caller may drive this.
func (a *App) ExecutePayment(ctx context.Context, caller streamfi.Address, scheduleID int64) (coin.Coin, error) {
	ctx = a.opCtx(ctx, caller)
	var amount coin.Coin
	err := a.exec(ctx, "execute payment", func(db streamfi.KVStore) ([]any, error) {
		var err error
		if amount, err = a.scheds.ExecutePayment(ctx, db, scheduleID); err != nil {
			return nil, err
		}
		schedule, err := a.scheds.GetSchedule(db, scheduleID)
		if err != nil {
			return nil, err
		}
		return []any{paysched.PaymentExecuted{
			ScheduleID: scheduleID,
			Recipient:  schedule.Recipient,
			Amount:     amount,
		}}, nil
	})
	return amount, err
}

// DeactivateSchedule stops a schedule for good.
func (a *App) DeactivateSchedule(ctx context.Context, creator streamfi.Address, scheduleID int64) error {
	ctx = a.opCtx(ctx, creator)
	return a.exec(ctx, "deactivate schedule", func(db streamfi.KVStore) ([]any, error) {
		if err := a.scheds.DeactivateSchedule(ctx, db, scheduleID); err != nil {
			return nil, err
		}
		return []any{paysched.ScheduleDeactivated{
			ScheduleID: scheduleID,
			Creator:    creator,
		}}, nil
	})
}

// IsPaymentDue reports whether ExecutePayment would be accepted now.
func (a *App) IsPaymentDue(ctx context.Context, scheduleID int64) (bool, error) {
	ctx = a.opCtx(ctx, nil)
	var due bool
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		due, err = a.scheds.IsPaymentDue(ctx, db, scheduleID)
		return err
	})
	return due, err
}

// GetSchedule returns the stored schedule.
func (a *App) GetSchedule(scheduleID int64) (*paysched.Schedule, error) {
	var schedule *paysched.Schedule
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		schedule, err = a.scheds.GetSchedule(db, scheduleID)
		return err
	})
	return schedule, err
}

// ScheduleCount returns the number of schedules ever created.
func (a *App) ScheduleCount() (int64, error) {
	var count int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		count, err = a.scheds.ScheduleCount(db)
		return err
	})
	return count, err
}

// SchedulesByCreator returns the ids of all schedules of the address.
func (a *App) SchedulesByCreator(creator streamfi.Address) ([]int64, error) {
	var ids []int64
	err := a.view(func(db streamfi.KVStore) error {
		var err error
		ids, err = a.scheds.SchedulesByCreator(db, creator)
		return err
	})
	return ids, err
}
