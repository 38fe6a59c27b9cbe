package rpcserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rpcRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clashicd",
		Name:      "rpc_requests_total",
		Help:      "RPC requests by method.",
	}, []string{"method"})

	rpcErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clashicd",
		Name:      "rpc_errors_total",
		Help:      "RPC requests that returned an error, by method.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(
		rpcRequests,
		rpcErrors,
	)
}
