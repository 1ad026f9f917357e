// Package metrics exposes tiermigrate to Prometheus: entry point outcomes
// as they happen, and registry aggregates read from the store at scrape
// time.
package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/tier"
)

const namespace = "tiermigrate"

// Source provides the scrape-time aggregates. *engine.Engine implements it.
type Source interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
}

// Metrics holds the collectors registered for one engine.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the entry point collectors and, when src is non-nil, the
// store aggregates on reg.
func New(reg prometheus.Registerer, src Source, logger *slog.Logger) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Entry point calls by operation and outcome",
		}, []string{"op", "outcome"}),

		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Entry point duration including commit",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"op"}),
	}
	if src != nil {
		RegisterSource(reg, src, logger)
	}
	return m
}

// RegisterSource registers the store aggregates of src on reg. Use it when
// the engine is built after its Metrics, since the engine takes them as
// its Recorder.
func RegisterSource(reg prometheus.Registerer, src Source, logger *slog.Logger) {
	reg.MustRegister(newStoreCollector(src, logger))
}

// Observe implements engine.Recorder.
func (m *Metrics) Observe(op, outcome string, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

var (
	holdersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "registry", "holders"),
		"Holders with a non-zero accumulated amount, by tier",
		[]string{"tier"}, nil,
	)
	trackedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "registry", "tracked_amount"),
		"Sum of accumulated issued amounts (float approximation)",
		nil, nil,
	)
	recordsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "ledger", "records"),
		"Records ever minted",
		nil, nil,
	)
	custodyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "custody", "asset_total"),
		"Sum of all custody balances of the deployment asset (float approximation)",
		nil, nil,
	)
	finalizedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "migration", "finalized"),
		"1 once the migration has been handed to a registry",
		nil, nil,
	)
	lastSeqDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "events", "last_seq"),
		"Highest event sequence number",
		nil, nil,
	)
	scrapeErrorDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scrape", "error"),
		"1 if reading the store for this scrape failed",
		nil, nil,
	)
)

type storeCollector struct {
	src    Source
	logger *slog.Logger
	tiers  int
}

func newStoreCollector(src Source, logger *slog.Logger) *storeCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeCollector{src: src, logger: logger, tiers: tier.Count}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- holdersDesc
	ch <- trackedDesc
	ch <- recordsDesc
	ch <- custodyDesc
	ch <- finalizedDesc
	ch <- lastSeqDesc
	ch <- scrapeErrorDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	snap, err := c.src.Snapshot(context.Background())
	if err != nil {
		c.logger.Warn("metrics snapshot failed", "error", err)
		ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 0)

	for t := 0; t < c.tiers; t++ {
		ch <- prometheus.MustNewConstMetric(holdersDesc, prometheus.GaugeValue,
			float64(snap.HoldersByTier[ir.Tier(t)]), strconv.Itoa(t))
	}
	ch <- prometheus.MustNewConstMetric(trackedDesc, prometheus.GaugeValue, approx(snap.Tracked))
	ch <- prometheus.MustNewConstMetric(recordsDesc, prometheus.GaugeValue, float64(snap.Records))
	ch <- prometheus.MustNewConstMetric(custodyDesc, prometheus.GaugeValue, approx(snap.Custody))
	ch <- prometheus.MustNewConstMetric(finalizedDesc, prometheus.GaugeValue, boolGauge(snap.Finalized))
	ch <- prometheus.MustNewConstMetric(lastSeqDesc, prometheus.CounterValue, float64(snap.LastSeq))
}

func approx(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	return v.Float64()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
