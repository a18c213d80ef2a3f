package ramp

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
)

// Domain events published on the application bus after a successful
// commit.

type RequestCreated struct {
	RequestID int64
	User      streamfi.Address
	Type      RequestType
	Amount    coin.Coin
	FiatCents int64
	Reference string
}

type RequestStatusChanged struct {
	RequestID int64
	Old       Status
	New       Status
}
