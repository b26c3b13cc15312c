package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/dealguard/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPoller struct {
	mu    sync.Mutex
	polls map[string]int
}

func newCountingPoller() *countingPoller {
	return &countingPoller{polls: make(map[string]int)}
}

func (p *countingPoller) Poll(ctx context.Context, address string) (core.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls[address]++
	return core.Snapshot{}, nil
}

func (p *countingPoller) count(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls[address]
}

func TestWatcher_PollsImmediately(t *testing.T) {
	p := newCountingPoller()
	w := NewWatcher(p, time.Hour, zerolog.Nop())
	defer w.Stop()

	w.Watch("0xAB12")
	require.Eventually(t, func() bool { return p.count("0xAB12") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "0xAB12", w.Address())

	// same address keeps the running loop
	w.Watch("0xAB12")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, p.count("0xAB12"))
}

func TestWatcher_PollsOnInterval(t *testing.T) {
	p := newCountingPoller()
	w := NewWatcher(p, 10*time.Millisecond, zerolog.Nop())
	defer w.Stop()

	w.Watch("0xAB12")
	require.Eventually(t, func() bool { return p.count("0xAB12") >= 3 }, time.Second, time.Millisecond)
}

func TestWatcher_AddressChangeAndLogout(t *testing.T) {
	p := newCountingPoller()
	w := NewWatcher(p, time.Hour, zerolog.Nop())
	defer w.Stop()

	w.Watch("0xAB12")
	require.Eventually(t, func() bool { return p.count("0xAB12") == 1 }, time.Second, time.Millisecond)

	w.Watch("0xCD34")
	require.Eventually(t, func() bool { return p.count("0xCD34") == 1 }, time.Second, time.Millisecond)

	w.Watch("")
	assert.Empty(t, w.Address())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, p.count("0xCD34"))
	assert.Zero(t, p.count(""))
}

func TestWatcher_Restart(t *testing.T) {
	p := newCountingPoller()
	w := NewWatcher(p, time.Hour, zerolog.Nop())
	defer w.Stop()

	// nothing to restart without an address
	w.Restart()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, p.count(""))

	w.Watch("0xAB12")
	require.Eventually(t, func() bool { return p.count("0xAB12") == 1 }, time.Second, time.Millisecond)

	w.Restart()
	require.Eventually(t, func() bool { return p.count("0xAB12") == 2 }, time.Second, time.Millisecond)

	w.Stop()
	assert.Empty(t, w.Address())
}

func TestWatcher_DrivesReducer(t *testing.T) {
	src := &fakeSource{}
	src.set([]core.ChainEvent{
		escrowEvent(t, "D1", "0xEE1", "0xAB12", "0xCD34", "1000000000", 1000),
	}, nil)
	r := newTestReducer(src, ReducerConfig{})

	w := NewWatcher(r, time.Hour, zerolog.Nop())
	defer w.Stop()

	w.Watch("0xAB12")
	require.Eventually(t, func() bool { return len(r.Snapshot().AsBuyer) == 1 }, time.Second, time.Millisecond)
}

func TestFollowIdentity_SwitchDropsPreviousRecords(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	src := &fakeSource{}
	src.set([]core.ChainEvent{escrowEvent(t, "D1", "0xEE1", "0xAB12", "0xCD34", "1000000000", 1)}, nil)
	reducer := newTestReducer(src, ReducerConfig{})
	watcher := NewWatcher(reducer, time.Hour, zerolog.Nop())
	defer watcher.Stop()

	var left []string
	FollowIdentity(f.svc, reducer, watcher, func(prev string) { left = append(left, prev) })
	f.wallet.OnChange(func() { f.svc.Reconcile(context.Background()) })

	require.NoError(t, f.svc.LoginWithToken(ctx, "0xAB12", "token", "42"))
	require.Eventually(t, func() bool { return len(reducer.Snapshot().AsBuyer) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, f.svc.Logout(ctx))
	assert.Empty(t, reducer.Snapshot().AsBuyer)

	src.set(nil, errors.New("connection refused"))
	f.wallet.Connect("0x9999")
	require.Equal(t, core.WalletIdentity("0x9999"), f.svc.Reconcile(ctx))
	require.Eventually(t, func() bool { return src.calls() == 2 }, time.Second, time.Millisecond)

	snap := reducer.Snapshot()
	assert.Equal(t, "0x9999", snap.Address)
	assert.Empty(t, snap.AsBuyer)
	assert.Empty(t, snap.Logs)
	assert.Equal(t, []string{"0xAB12"}, left)
}
