// Package metrics exposes domain-level Prometheus metrics for statement
// execution and quota enforcement. HTTP-level metrics live in the API
// middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdb_queries_total",
			Help: "Statements executed against tenant databases",
		},
		[]string{"kind", "status"},
	)

	quotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdb_quota_rejections_total",
			Help: "Operations rejected by quota enforcement",
		},
		[]string{"operation"},
	)
)

// ObserveQuery records one executed statement by kind and outcome.
func ObserveQuery(kind string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	queriesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveQuotaRejection records one quota-rejected operation.
func ObserveQuotaRejection(operation string) {
	quotaRejectionsTotal.WithLabelValues(operation).Inc()
}

// RegisterOpenHandles exposes the number of currently open tenant database
// handles as a gauge.
func RegisterOpenHandles(open func() int) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tenantdb_open_tenant_handles",
		Help: "Number of currently open tenant database handles",
	}, func() float64 {
		return float64(open())
	}))
}
