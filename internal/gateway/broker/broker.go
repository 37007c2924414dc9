package broker

import (
	"context"
	"time"

	"marketpipe/internal/contracts"
)

// Clock is one market-clock reading. Re-fetched at every cycle boundary;
// a reading must never be reused across cycles.
type Clock struct {
	IsOpen   bool
	NextOpen time.Time
	AsOf     time.Time
}

// MarketClock answers whether the market is open and when it next opens.
type MarketClock interface {
	GetClock(ctx context.Context) (Clock, error)
}

// Brokerage is the consumed order-submission surface. Submit returns the
// broker-assigned order id; a rejection comes back as an error and never
// affects the caller's remaining orders.
type Brokerage interface {
	MarketClock
	Submit(ctx context.Context, order contracts.ProposedOrder) (string, error)
	GetAccountSnapshot(ctx context.Context) (contracts.AccountSnapshot, error)
}
