package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Lookup metrics
	LookupsTotal   *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec

	// History metrics
	HistorySavedTotal   prometheus.Counter
	HistorySkippedTotal prometheus.Counter
	HistorySweptTotal   prometheus.Counter
	StorageErrorsTotal  *prometheus.CounterVec
}

// NewCollector creates a collector registered on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total number of weather lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Weather provider lookup duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"source"},
		),

		HistorySavedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_entries_saved_total",
				Help:      "Total number of history entries inserted",
			},
		),

		HistorySkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_entries_skipped_total",
				Help:      "Total number of lookups not saved because of the dedup window",
			},
		),

		HistorySweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_entries_swept_total",
				Help:      "Total number of history entries removed by the retention sweep",
			},
		),

		StorageErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of history storage errors by operation",
			},
			[]string{"op"},
		),
	}
}

// RecordLookup counts a lookup and observes its duration.
func (c *Collector) RecordLookup(source, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.LookupsTotal.WithLabelValues(source, outcome).Inc()
	c.LookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordHistorySaved increments the saved entries counter.
func (c *Collector) RecordHistorySaved() {
	if c == nil {
		return
	}
	c.HistorySavedTotal.Inc()
}

// RecordHistorySkipped increments the deduplicated lookups counter.
func (c *Collector) RecordHistorySkipped() {
	if c == nil {
		return
	}
	c.HistorySkippedTotal.Inc()
}

// RecordSwept adds n removed entries.
func (c *Collector) RecordSwept(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.HistorySweptTotal.Add(float64(n))
}

// RecordStorageError increments the storage error counter for op.
func (c *Collector) RecordStorageError(op string) {
	if c == nil {
		return
	}
	c.StorageErrorsTotal.WithLabelValues(op).Inc()
}
