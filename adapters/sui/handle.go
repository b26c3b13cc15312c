package sui

import (
	"context"
	"sync"

	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
)

// Handle holds a client that is attached once the node becomes reachable.
// Calls made before that fail with core.ErrSourceNotReady.
type Handle struct {
	mu     sync.RWMutex
	client *Client
}

// Set attaches the client
func (h *Handle) Set(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.client = c
}

// Ready reports whether a client is attached
func (h *Handle) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.client != nil
}

func (h *Handle) get() (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.client == nil {
		return nil, core.ErrSourceNotReady
	}
	return h.client, nil
}

func (h *Handle) QueryEvents(ctx context.Context, query ports.EventQuery) ([]core.ChainEvent, error) {
	c, err := h.get()
	if err != nil {
		return nil, err
	}
	return c.QueryEvents(ctx, query)
}

func (h *Handle) Balance(ctx context.Context, owner string) (string, error) {
	c, err := h.get()
	if err != nil {
		return "", err
	}
	return c.Balance(ctx, owner)
}

// Close closes the attached client, if any
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
}
