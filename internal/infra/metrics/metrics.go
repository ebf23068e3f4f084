// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		panelRequestsTotal, panelRequestDuration,
		panelRetriesTotal, panelLoginsTotal, panelUp,
	)
}

var (
	panelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_requests_total",
			Help: "Panel API calls by operation and outcome kind.",
		},
		[]string{"op", "result"}, // result: ok | network | auth | validation | not_found | server | api
	)

	panelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panel_request_duration_seconds",
			Help:    "Panel API call latency.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"op"},
	)

	panelRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_retries_total",
			Help: "Retries scheduled by the panel retry policy.",
		},
		[]string{"op"},
	)

	panelLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_logins_total",
			Help: "Panel login attempts by result.",
		},
		[]string{"result"}, // success | failed | throttled
	)

	panelUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "panel_up",
			Help: "1 if the last panel probe succeeded.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Panel helpers --------

func ObservePanelRequest(op, result string, d time.Duration) {
	panelRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	panelRequestDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}

func IncPanelRetry(op string) {
	panelRetriesTotal.WithLabelValues(norm(op)).Inc()
}

func IncPanelLogin(result string) {
	panelLoginsTotal.WithLabelValues(norm(result)).Inc()
}

func SetPanelUp(up bool) {
	if up {
		panelUp.Set(1)
		return
	}
	panelUp.Set(0)
}
