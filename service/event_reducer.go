package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
	"github.com/rs/zerolog"
)

const (
	// EscrowModule is the contract module whose events are read
	EscrowModule = "escrow"
	// EventLimit is how many of the most recent events one poll reads
	EventLimit = 50
	// MaxLogEntries caps the published activity log
	MaxLogEntries = 20
)

// ReducerConfig configures an EventReducer
type ReducerConfig struct {
	PackageID string
	Module    string

	// Samples returns the illustrative records merged into every snapshot.
	// Nil publishes chain data only.
	Samples func(now time.Time) core.SampleSet

	// OnIncoming fires once per escrow id that names the identity as seller
	OnIncoming func(core.Transaction)

	Publisher ports.EventPublisher
	Metrics   *Metrics
	Logger    zerolog.Logger
	Location  *time.Location
}

// Reduction is what one batch of events contributes to a snapshot
type Reduction struct {
	AsBuyer  []core.Transaction
	AsSeller []core.Transaction
	Logs     []core.LogMessage
}

// EventReducer turns contract events into per-role transaction lists and an
// activity log. Every successful poll replaces the whole snapshot.
type EventReducer struct {
	cfg     ReducerConfig
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
	seq     atomic.Uint64

	mu          sync.Mutex
	source      ports.EventSource
	target      string
	notified    map[string]struct{}
	snapshot    core.Snapshot
	published   uint64
	closed      bool
	subscribers map[int]func(core.Snapshot)
	nextSub     int
}

// NewEventReducer creates a reducer reading from source, which may be nil
// until the chain node is reachable
func NewEventReducer(source ports.EventSource, cfg ReducerConfig) *EventReducer {
	if cfg.Module == "" {
		cfg.Module = EscrowModule
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	return &EventReducer{
		cfg:         cfg,
		log:         cfg.Logger.With().Str("component", "events").Logger(),
		metrics:     cfg.Metrics,
		now:         time.Now,
		source:      source,
		notified:    make(map[string]struct{}),
		subscribers: make(map[int]func(core.Snapshot)),
	}
}

// SetSource swaps the chain event source
func (r *EventReducer) SetSource(source ports.EventSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.source = source
}

// Ready reports whether an event source is attached
func (r *EventReducer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.source != nil
}

// Snapshot returns the last published snapshot
func (r *EventReducer) Snapshot() core.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshot
}

// Subscribe registers fn to receive every published snapshot
func (r *EventReducer) Subscribe(fn func(core.Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// Reset drops the published records and scopes the reducer to address.
// Responses from polls started before the reset are discarded, as are polls
// for any other address. An empty address clears the scope.
func (r *EventReducer) Reset(address string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	seq := r.seq.Add(1)
	r.target = address
	r.published = seq
	r.snapshot = core.Snapshot{Address: address, UpdatedAt: r.now()}
	snap := r.snapshot
	subs := r.subscriberList()
	r.mu.Unlock()

	r.log.Debug().Str("address", address).Msg("reset snapshot")
	r.metrics.records.WithLabelValues(string(core.RoleBuyer)).Set(0)
	r.metrics.records.WithLabelValues(string(core.RoleSeller)).Set(0)
	for _, fn := range subs {
		fn(snap)
	}
}

// Close stops publishing. Polls still in flight resolve into nothing.
func (r *EventReducer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.subscribers = make(map[int]func(core.Snapshot))
}

// Poll reads the latest escrow events and publishes a new snapshot for
// address. It is a no-op without an address or an event source. On failure
// the previous snapshot stays published and the error is returned.
func (r *EventReducer) Poll(ctx context.Context, address string) (core.Snapshot, error) {
	r.mu.Lock()
	source := r.source
	r.mu.Unlock()

	if address == "" || source == nil {
		return r.Snapshot(), nil
	}

	seq := r.seq.Add(1)
	start := time.Now()
	events, err := source.QueryEvents(ctx, ports.EventQuery{
		Package:    r.cfg.PackageID,
		Module:     r.cfg.Module,
		Limit:      EventLimit,
		Descending: true,
	})
	r.metrics.pollLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.polls.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("address", address).Msg("failed to fetch events")
		return r.Snapshot(), err
	}
	r.metrics.polls.WithLabelValues("ok").Inc()

	red := Reduce(events, address, r.cfg.Location)
	if r.watching(address) {
		for _, tx := range red.AsSeller {
			r.notifyIncoming(ctx, address, tx)
		}
	}

	snap := r.merge(address, red, r.now())
	if !r.publish(seq, snap) {
		r.metrics.staleDrops.Inc()
		r.log.Debug().Uint64("seq", seq).Msg("dropped stale poll response")
	}
	return r.Snapshot(), nil
}

// Reduce classifies escrow creation events relative to address. Events of
// other kinds, with unreadable payloads or naming neither side are skipped.
func Reduce(events []core.ChainEvent, address string, loc *time.Location) Reduction {
	var red Reduction

	for _, e := range events {
		if !strings.Contains(e.Type, core.EscrowCreatedSuffix) {
			continue
		}
		if len(e.ParsedJSON) == 0 || string(e.ParsedJSON) == "null" {
			continue
		}

		var p core.EscrowCreated
		if err := json.Unmarshal(e.ParsedJSON, &p); err != nil {
			continue
		}

		isBuyer := core.SameAddress(p.Buyer, address)
		isSeller := core.SameAddress(p.Seller, address)
		if !isBuyer && !isSeller {
			continue
		}

		amount, err := core.FormatMist(p.Amount)
		if err != nil {
			continue
		}

		tx := core.Transaction{
			ShortID:   core.ShortID(p.EscrowID),
			FullID:    p.EscrowID,
			Amount:    amount,
			Status:    core.StatusFunded,
			Timestamp: e.TimestampMs,
		}

		var content string
		if isBuyer {
			tx.Role = core.RoleBuyer
			tx.Counterparty = p.Seller
			red.AsBuyer = append(red.AsBuyer, tx)
			content = fmt.Sprintf("You created escrow %s for %s", tx.ShortID, tx.Amount)
		} else {
			tx.Role = core.RoleSeller
			tx.Counterparty = p.Buyer
			red.AsSeller = append(red.AsSeller, tx)
			content = fmt.Sprintf("Counterparty %s opened escrow %s with you.", prefix(tx.Counterparty, 6), tx.ShortID)
		}

		red.Logs = append(red.Logs, core.LogMessage{
			ID:      e.ID.TxDigest,
			Time:    time.UnixMilli(e.TimestampMs).In(loc).Format("15:04"),
			Content: content,
			Kind:    core.LogSuccess,
		})
	}

	return red
}

func (r *EventReducer) merge(address string, red Reduction, now time.Time) core.Snapshot {
	var samples core.SampleSet
	if r.cfg.Samples != nil {
		samples = r.cfg.Samples(now)
		samples.AsBuyer = markSamples(samples.AsBuyer)
		samples.AsSeller = markSamples(samples.AsSeller)
	}

	logs := append(append([]core.LogMessage{}, red.Logs...), samples.Logs...)
	if len(logs) > MaxLogEntries {
		logs = logs[:MaxLogEntries]
	}

	return core.Snapshot{
		Address:   address,
		AsBuyer:   newestFirst(red.AsBuyer, samples.AsBuyer),
		AsSeller:  newestFirst(red.AsSeller, samples.AsSeller),
		Logs:      logs,
		UpdatedAt: now,
	}
}

// publish installs snap unless a response from a later poll is already
// published, snap belongs to an address other than the scoped one, or the
// reducer is closed
func (r *EventReducer) publish(seq uint64, snap core.Snapshot) bool {
	r.mu.Lock()
	if r.closed || seq <= r.published || (r.target != "" && snap.Address != r.target) {
		r.mu.Unlock()
		return false
	}
	r.snapshot = snap
	r.published = seq
	subs := r.subscriberList()
	r.mu.Unlock()

	r.metrics.records.WithLabelValues(string(core.RoleBuyer)).Set(float64(len(snap.AsBuyer)))
	r.metrics.records.WithLabelValues(string(core.RoleSeller)).Set(float64(len(snap.AsSeller)))

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// watching reports whether address matches the scope. Must not hold mu.
func (r *EventReducer) watching(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.target == "" || r.target == address
}

// subscriberList copies the subscribers. Caller holds mu.
func (r *EventReducer) subscriberList() []func(core.Snapshot) {
	subs := make([]func(core.Snapshot), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (r *EventReducer) notifyIncoming(ctx context.Context, address string, tx core.Transaction) {
	r.mu.Lock()
	_, seen := r.notified[tx.FullID]
	if seen || r.closed {
		r.mu.Unlock()
		return
	}
	r.notified[tx.FullID] = struct{}{}
	r.mu.Unlock()

	r.metrics.notified.Inc()
	r.log.Info().Str("escrow", tx.FullID).Str("buyer", tx.Counterparty).Msg("incoming escrow")

	if r.cfg.OnIncoming != nil {
		r.cfg.OnIncoming(tx)
	}
	if r.cfg.Publisher != nil {
		if err := r.cfg.Publisher.PublishIncomingEscrow(ctx, address, tx); err != nil {
			r.log.Warn().Err(err).Msg("failed to publish incoming escrow")
		}
	}
}

func newestFirst(lists ...[]core.Transaction) []core.Transaction {
	out := []core.Transaction{}
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

func markSamples(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Sample = true
		out[i] = tx
	}
	return out
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
