package paysched

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
)

// Domain events published on the application bus after a successful
// commit.

type ScheduleCreated struct {
	ScheduleID int64
	Creator    streamfi.Address
	Recipient  streamfi.Address
	Amount     coin.Coin
	Interval   int64
}

type PaymentExecuted struct {
	ScheduleID int64
	Recipient  streamfi.Address
	Amount     coin.Coin
}

type ScheduleDeactivated struct {
	ScheduleID int64
	Creator    streamfi.Address
}
