package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/dealguard/core"
)

const (
	LogoutTopic         = "dealguard.logout"
	IncomingEscrowTopic = "dealguard.escrow.incoming"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string    `json:"address"`
	Source  string    `json:"source"`
	At      time.Time `json:"at"`
}

// IncomingEscrowEvent is published the first time an escrow names the
// current identity as seller
type IncomingEscrowEvent struct {
	Address     string           `json:"address"`
	Transaction core.Transaction `json:"transaction"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identity core.Identity) error {
	return p.publish(ctx, LogoutTopic, LogoutEvent{
		Address: identity.Address,
		Source:  string(identity.Kind()),
		At:      time.Now().UTC(),
	})
}

// PublishIncomingEscrow publishes an incoming escrow notification
func (p *WatermillPublisher) PublishIncomingEscrow(ctx context.Context, address string, tx core.Transaction) error {
	return p.publish(ctx, IncomingEscrowTopic, IncomingEscrowEvent{
		Address:     address,
		Transaction: tx,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event, used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) PublishLogout(context.Context, core.Identity) error { return nil }

func (NopPublisher) PublishIncomingEscrow(context.Context, string, core.Transaction) error {
	return nil
}
