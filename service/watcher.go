package service

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/dealguard/core"
	"github.com/rs/zerolog"
)

// PollInterval is the delay between two event polls
const PollInterval = 10 * time.Second

// Poller is the part of the reducer the watcher drives
type Poller interface {
	Poll(ctx context.Context, address string) (core.Snapshot, error)
}

// Watcher polls for one address: once right away, then on every interval
// until the address changes or the watcher is stopped
type Watcher struct {
	poller   Poller
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	address string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates an idle watcher
func NewWatcher(poller Poller, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = PollInterval
	}
	return &Watcher{
		poller:   poller,
		interval: interval,
		log:      logger.With().Str("component", "watcher").Logger(),
	}
}

// Watch starts polling for address. An unchanged address keeps the running
// loop; an empty address stops polling.
func (w *Watcher) Watch(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if address == w.address && (w.cancel != nil || address == "") {
		return
	}
	w.stopLocked()
	w.address = address
	if address != "" {
		w.startLocked()
	}
}

// Restart forces an immediate poll for the current address, used when the
// event source becomes available
func (w *Watcher) Restart() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	if w.address != "" {
		w.startLocked()
	}
}

// Address returns the address being watched
func (w *Watcher) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.address
}

// Stop cancels the timer. A poll in flight is cancelled through its context.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	w.address = ""
}

func (w *Watcher) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go w.run(ctx, w.address, done)
}

func (w *Watcher) stopLocked() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}

func (w *Watcher) run(ctx context.Context, address string, done chan struct{}) {
	defer close(done)

	w.log.Debug().Str("address", address).Dur("interval", w.interval).Msg("watching")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.pollOnce(ctx, address)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context, address string) {
	pollCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	// The reducer logs failures and keeps the previous snapshot
	_, _ = w.poller.Poll(pollCtx, address)
}

// FollowIdentity keeps reducer and watcher on the signed-in address. On every
// switch the published records are dropped before polling starts for the new
// address, and onLeave runs with the address that was left.
func FollowIdentity(auth *AuthService, reducer *EventReducer, watcher *Watcher, onLeave func(prev string)) {
	auth.OnIdentityChange(func(id core.Identity) {
		prev := watcher.Address()
		if prev != id.Address {
			reducer.Reset(id.Address)
			if prev != "" && onLeave != nil {
				onLeave(prev)
			}
		}
		watcher.Watch(id.Address)
	})
}
