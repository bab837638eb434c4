// Package metrics holds the relay's Prometheus instrumentation. It is a
// standalone package (rather than living in pkg/api) because the
// scheduler and deposit matcher report their own gauges directly,
// without going through the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_orders_submitted_total",
		Help: "Orders accepted via POST /order and /order/encrypted.",
	}, []string{"market", "side"})

	BatchExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_batch_executions_total",
		Help: "Batch execute() calls by outcome.",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_http_requests_total",
		Help: "HTTP requests served by route and status code.",
	}, []string{"route", "status"})

	OpenBatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_open_batches",
		Help: "Batches currently in the collecting state, one per (marketId, side).",
	})

	OrdersByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_orders_by_status",
		Help: "Orders currently in each status.",
	}, []string{"status"})

	DepositMatcherLagSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_deposit_matcher_lag_seconds",
		Help: "Seconds since the deposit matcher last completed a poll.",
	})
)
