package ports

import (
	"context"

	"github.com/layer-3/dealguard/core"
)

// EventQuery selects events emitted by one package/module pair
type EventQuery struct {
	Package    string
	Module     string
	Limit      int
	Descending bool
}

// EventSource reads contract-emitted events from a chain node
type EventSource interface {
	QueryEvents(ctx context.Context, query EventQuery) ([]core.ChainEvent, error)
}

// BalanceSource reads the total coin balance of an address, in base units
type BalanceSource interface {
	Balance(ctx context.Context, owner string) (string, error)
}
