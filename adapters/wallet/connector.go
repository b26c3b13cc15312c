package wallet

import (
	"context"
	"sync"
)

// Connector mirrors the browser wallet connection reported by the UI
type Connector struct {
	mu       sync.RWMutex
	address  string
	onChange []func()
}

// NewConnector creates a disconnected wallet connector
func NewConnector() *Connector {
	return &Connector{}
}

// Connect records the account the wallet reported
func (c *Connector) Connect(address string) {
	c.mu.Lock()
	changed := c.address != address
	c.address = address
	hooks := append([]func(){}, c.onChange...)
	c.mu.Unlock()

	if changed {
		for _, h := range hooks {
			h()
		}
	}
}

// Account returns the connected account, if any
func (c *Connector) Account(ctx context.Context) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.address, c.address != ""
}

// Disconnect forgets the connected account
func (c *Connector) Disconnect(ctx context.Context) error {
	c.Connect("")
	return nil
}

// OnChange registers a hook fired after the connected account changes
func (c *Connector) OnChange(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onChange = append(c.onChange, hook)
}
