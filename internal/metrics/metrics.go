// Package metrics exposes Prometheus counters and histograms for the
// ingestion pipeline, alert engine, and subscription hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PositionsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_positions_ingested_total",
		Help: "Total number of accepted position updates",
	})
	PositionsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_positions_dropped_total",
		Help: "Total number of rejected or dropped position updates by reason",
	}, []string{"reason"})
	IngestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_ingest_duration_ms",
		Help:    "Position ingestion pipeline duration in milliseconds",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
	})
	AlertsRaisedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_raised_total",
		Help: "Total number of alerts raised by kind and severity",
	}, []string{"kind", "severity"})
	HubSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_hub_sessions",
		Help: "Current number of live subscription hub sessions",
	})
	HotcacheDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_hotcache_degraded_total",
		Help: "Total number of position updates that proceeded without a hotcache write",
	})
	ZoneCompactionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_zone_compactions_total",
		Help: "Total number of tombstoned zones removed by the compactor",
	})
)

func init() {
	prometheus.MustRegister(PositionsIngestedTotal)
	prometheus.MustRegister(PositionsDroppedTotal)
	prometheus.MustRegister(IngestDurationMs)
	prometheus.MustRegister(AlertsRaisedTotal)
	prometheus.MustRegister(HubSessionsGauge)
	prometheus.MustRegister(HotcacheDegradedTotal)
	prometheus.MustRegister(ZoneCompactionsTotal)
}

// Handler returns the Prometheus scrape handler, mounted at GET /metrics.
func Handler() http.Handler { return promhttp.Handler() }
