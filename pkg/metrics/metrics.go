package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "clout_settlement_"

var (
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "rpc_requests_total",
		Help: "Solana RPC requests, by method and outcome.",
	}, []string{"method", "outcome"})

	TransactionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "transactions_built_total",
		Help: "Transactions composed, by operation and outcome.",
	}, []string{"operation", "outcome"})

	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "build_duration_seconds",
		Help:    "Time to compose a transaction, pre-flight fetches included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
