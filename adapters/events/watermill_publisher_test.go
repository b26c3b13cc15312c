package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/dealguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	logouts, err := pubSub.Subscribe(ctx, LogoutTopic)
	require.NoError(t, err)
	incoming, err := pubSub.Subscribe(ctx, IncomingEscrowTopic)
	require.NoError(t, err)

	p := NewWatermillPublisher(pubSub)

	go func() {
		_ = p.PublishLogout(ctx, core.TokenIdentity("0xAB12"))
		_ = p.PublishIncomingEscrow(ctx, "0xCD34", core.Transaction{FullID: "0xEE1", Role: core.RoleSeller})
	}()

	select {
	case msg := <-logouts:
		var ev LogoutEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "0xAB12", ev.Address)
		assert.Equal(t, "zk", ev.Source)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no logout event")
	}

	select {
	case msg := <-incoming:
		var ev IncomingEscrowEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "0xCD34", ev.Address)
		assert.Equal(t, "0xEE1", ev.Transaction.FullID)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no incoming escrow event")
	}
}
