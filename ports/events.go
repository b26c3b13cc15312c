package ports

import (
	"context"

	"github.com/layer-3/dealguard/core"
)

// EventPublisher publishes session and escrow notifications
type EventPublisher interface {
	PublishLogout(ctx context.Context, identity core.Identity) error
	PublishIncomingEscrow(ctx context.Context, address string, tx core.Transaction) error
}
