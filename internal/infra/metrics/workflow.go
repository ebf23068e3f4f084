package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(approvalsTotal, trialsTotal, receiptsTotal)
}

var (
	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approvals_total",
			Help: "Admin payment decisions by action and result.",
		},
		[]string{"action", "result"}, // action: approve|reject; result: ok|failed|duplicate|unauthorized
	)

	trialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trials_total",
			Help: "Trial activation attempts by result.",
		},
		[]string{"result"}, // activated | already_used | in_progress | failed
	)

	receiptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_total",
			Help: "Payment receipts forwarded to the admin.",
		},
		[]string{"kind"}, // photo | document
	)
)

func IncApproval(action, result string) {
	approvalsTotal.WithLabelValues(norm(action), norm(result)).Inc()
}

func IncTrial(result string) {
	trialsTotal.WithLabelValues(norm(result)).Inc()
}

func IncReceipt(kind string) {
	receiptsTotal.WithLabelValues(norm(kind)).Inc()
}
