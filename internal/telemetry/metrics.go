package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastix_actions_total",
		Help: "Total actions executed against datasources",
	}, []string{"method", "outcome", "error_kind"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elastix_action_duration_seconds",
		Help:    "Duration of a single action round trip",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	poolClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elastix_connection_pool_clients",
		Help: "Number of cached datasource clients",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastix_api_http_requests_total",
		Help: "Total HTTP requests handled by elastix_api",
	}, []string{"method", "status"})
)

// ObserveAction фиксирует завершение одного action.
// errorKind пуст для успешного выполнения.
func ObserveAction(method string, success bool, errorKind string, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	actionsTotal.WithLabelValues(method, outcome, errorKind).Inc()
	actionDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetPoolClients обновляет размер пула клиентов.
func SetPoolClients(n int) {
	poolClients.Set(float64(n))
}

// ObserveHTTPRequest считает запрос к API.
func ObserveHTTPRequest(method, status string) {
	httpRequests.WithLabelValues(method, status).Inc()
}
