package service

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dealguard"

// Metrics counts event reducer activity
type Metrics struct {
	polls       *prometheus.CounterVec
	staleDrops  prometheus.Counter
	records     *prometheus.GaugeVec
	notified    prometheus.Counter
	pollLatency prometheus.Histogram
}

// NewMetrics creates the reducer metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "polls_total",
			Help:      "number of event polls by result",
		}, []string{"result"}),
		staleDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "stale_responses_total",
			Help:      "poll responses dropped because a newer one was already published",
		}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "transactions",
			Help:      "transactions in the last published snapshot by role",
		}, []string{"role"}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "incoming_escrows_total",
			Help:      "incoming escrow notifications fired",
		}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "poll_duration_seconds",
			Help:      "duration of event queries against the chain node",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.polls, m.staleDrops, m.records, m.notified, m.pollLatency)
	}
	return m
}
