// Package paysched implements a recurring payment scheduler. A creator
// registers a fixed amount to be paid to a recipient every interval, funded
// through an allowance granted to the scheduler. Execution is caller
// driven: anyone may trigger a due payment, dueness is computed from the
// stored timestamps.
package paysched

import (
	"context"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/x/cash"
)

// CreateScheduleMsg registers a new recurring payment.
type CreateScheduleMsg struct {
	Recipient streamfi.Address
	Amount    coin.Coin
	// Interval between payments in seconds.
	Interval int64
}

func (m *CreateScheduleMsg) Validate() error {
	if err := m.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !m.Amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "amount %v", &m.Amount)
	}
	if m.Interval <= 0 {
		return errors.Wrapf(errors.ErrInput, "interval %d", m.Interval)
	}
	return nil
}

// Handler implements all schedule operations on top of a cash controller.
type Handler struct {
	bucket ScheduleBucket
	cash   cash.Controller
}

func NewHandler(ctrl cash.Controller) *Handler {
	return &Handler{
		bucket: NewScheduleBucket(),
		cash:   ctrl,
	}
}

// CreateSchedule stores a new schedule with the first payment due one
// interval from now. Returns the assigned schedule id.
func (h *Handler) CreateSchedule(ctx context.Context, db streamfi.KVStore, msg *CreateScheduleMsg) (int64, error) {
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
	if creator.Equals(msg.Recipient) {
		return 0, errors.Wrap(errors.ErrInput, "cannot schedule payments to self")
	}

	schedule := &Schedule{
		Creator:     creator.Clone(),
		Recipient:   msg.Recipient.Clone(),
		Amount:      msg.Amount,
		Interval:    msg.Interval,
		NextPayment: now.Add(asSeconds(msg.Interval)),
		Active:      true,
		TotalPaid:   msg.Amount.WithTicker(0),
	}
	return h.bucket.Create(db, schedule)
}

// ExecutePayment performs one due payment. Anyone may call: the transfer
// is bounded by the schedule terms and the creator's allowance, not by who
// triggers it. The schedule is advanced and saved before the funds move.
func (h *Handler) ExecutePayment(ctx context.Context, db streamfi.KVStore, scheduleID int64) (coin.Coin, error) {
	now, err := streamfi.Now(ctx)
	if err != nil {
		return coin.Coin{}, err
	}
	schedule, err := h.GetSchedule(db, scheduleID)
	if err != nil {
		return coin.Coin{}, err
	}
	if !schedule.Active {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "schedule %d is deactivated", scheduleID)
	}
	if !schedule.DueAt(now) {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "schedule %d not due until %s", scheduleID, schedule.NextPayment)
	}

	paid, err := schedule.TotalPaid.Add(schedule.Amount)
	if err != nil {
		return coin.Coin{}, err
	}
	schedule.TotalPaid = paid
	schedule.PaymentCount++
	schedule.NextPayment = schedule.NextPayment.Add(asSeconds(schedule.Interval))
	if err := h.bucket.Save(db, scheduleID, schedule); err != nil {
		return coin.Coin{}, err
	}

	err = h.cash.MoveWithAllowance(db, schedule.Creator, ModuleAddress(), schedule.Recipient, schedule.Amount)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot execute payment")
	}
	return schedule.Amount, nil
}

// DeactivateSchedule stops the schedule for good. Only the creator may
// call and the flag never flips back.
func (h *Handler) DeactivateSchedule(ctx context.Context, db streamfi.KVStore, scheduleID int64) error {
	signer, err := streamfi.MustSigner(ctx)
	if err != nil {
		return err
	}
	schedule, err := h.GetSchedule(db, scheduleID)
	if err != nil {
		return err
	}
	if !schedule.Creator.Equals(signer) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not the schedule creator", signer)
	}
	if !schedule.Active {
		return errors.Wrapf(errors.ErrState, "schedule %d already deactivated", scheduleID)
	}
	schedule.Active = false
	return h.bucket.Save(db, scheduleID, schedule)
}

// IsPaymentDue reports whether ExecutePayment would be accepted right now.
func (h *Handler) IsPaymentDue(ctx context.Context, db streamfi.KVStore, scheduleID int64) (bool, error) {
	now, err := streamfi.Now(ctx)
	if err != nil {
		return false, err
	}
	schedule, err := h.GetSchedule(db, scheduleID)
	if err != nil {
		return false, err
	}
	return schedule.DueAt(now), nil
}

// GetSchedule loads a schedule by id.
func (h *Handler) GetSchedule(db streamfi.KVStore, scheduleID int64) (*Schedule, error) {
	schedule, err := h.bucket.Get(db, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "schedule %d", scheduleID)
	}
	return schedule, nil
}

// ScheduleCount returns the number of schedules ever created.
func (h *Handler) ScheduleCount(db streamfi.KVStore) (int64, error) {
	return h.bucket.Count(db)
}

// SchedulesByCreator returns the ids of all schedules of the address.
func (h *Handler) SchedulesByCreator(db streamfi.KVStore, creator streamfi.Address) ([]int64, error) {
	return h.bucket.ByCreator(db, creator)
}
