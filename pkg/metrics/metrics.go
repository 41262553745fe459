package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

// Reconciler exports refresh and mint outcomes as prometheus metrics. It
// implements reconcile.Observer.
type Reconciler struct {
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	mints           *prometheus.CounterVec
	mintDuration    prometheus.Histogram
	itemsRemaining  prometheus.Gauge
	active          prometheus.Gauge
	txSize          prometheus.Gauge
}

var (
	reconcilerOnce     sync.Once
	reconcilerRegistry *Reconciler
)

// Default returns the process wide collectors, registered on first use.
func Default() *Reconciler {
	reconcilerOnce.Do(func() {
		reconcilerRegistry = New()
		reconcilerRegistry.MustRegister(prometheus.DefaultRegisterer)
	})
	return reconcilerRegistry
}

// New builds unregistered collectors.
func New() *Reconciler {
	return &Reconciler{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mintwatch",
			Subsystem: "reconciler",
			Name:      "refreshes_total",
			Help:      "Candy machine refreshes by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mintwatch",
			Subsystem: "reconciler",
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a refresh including balance lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mintwatch",
			Subsystem: "reconciler",
			Name:      "mint_attempts_total",
			Help:      "Mint submissions by outcome.",
		}, []string{"outcome"}),
		mintDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mintwatch",
			Subsystem: "reconciler",
			Name:      "mint_duration_seconds",
			Help:      "Wall time of a mint submission from signing to confirmation.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120},
		}),
		itemsRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mintwatch",
			Subsystem: "candy_machine",
			Name:      "items_remaining",
			Help:      "Items left to mint according to the latest snapshot.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mintwatch",
			Subsystem: "candy_machine",
			Name:      "active",
			Help:      "1 when the wallet can mint in the public phase.",
		}),
		txSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mintwatch",
			Subsystem: "candy_machine",
			Name:      "estimated_tx_bytes",
			Help:      "Estimated size of a combined setup and mint transaction.",
		}),
	}
}

func (m *Reconciler) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.refreshes,
		m.refreshDuration,
		m.mints,
		m.mintDuration,
		m.itemsRemaining,
		m.active,
		m.txSize,
	)
}

func (m *Reconciler) ObserveRefresh(outcome reconcile.RefreshOutcome, took time.Duration, snap *eligibility.Snapshot) {
	m.refreshes.WithLabelValues(string(outcome)).Inc()
	if outcome == reconcile.RefreshSkipped {
		return
	}
	m.refreshDuration.Observe(took.Seconds())
	if snap == nil {
		return
	}
	m.itemsRemaining.Set(float64(snap.ItemsRemaining))
	m.txSize.Set(float64(snap.EstimatedTxSize))
	if snap.IsActive {
		m.active.Set(1)
	} else {
		m.active.Set(0)
	}
}

func (m *Reconciler) ObserveMint(a reconcile.MintAttempt) {
	m.mints.WithLabelValues(string(a.Outcome)).Inc()
	m.mintDuration.Observe(a.Took.Seconds())
}

var _ reconcile.Observer = (*Reconciler)(nil)
