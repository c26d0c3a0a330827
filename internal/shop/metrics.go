package shop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_shop_operations_total",
		Help: "Controller operations by operation and resulting prompt.",
	}, []string{"op", "prompt"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopbot_shop_operation_duration_seconds",
		Help:    "Controller operation latency including store calls.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})

	cartAdditionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_cart_additions_total",
		Help: "Units added to carts.",
	})

	receiptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_receipts_total",
		Help: "Receipts generated, by status.",
	}, []string{"status"})

	storeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_store_failures_total",
		Help: "Store or renderer failures surfaced to users, by operation.",
	}, []string{"op"})
)
