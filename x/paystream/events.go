package paystream

import (
	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/coin"
)

// Domain events published on the application bus after a successful
// commit. Observers and indexers subscribe to these, correctness never
// depends on them.

type StreamCreated struct {
	StreamID int64
	Creator  streamfi.Address
	Total    coin.Coin
	Start    streamfi.UnixTime
	Stop     streamfi.UnixTime
}

type PaymentClaimed struct {
	StreamID  int64
	Recipient streamfi.Address
	Amount    coin.Coin
}

type RecipientRemoved struct {
	StreamID  int64
	Recipient streamfi.Address
	Refund    coin.Coin
}

type StreamCancelled struct {
	StreamID int64
	Creator  streamfi.Address
	Refund   coin.Coin
}
