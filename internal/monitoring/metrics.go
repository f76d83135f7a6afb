package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	BetsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bets_settled_total",
			Help: "Total bets settled by outcome",
		},
		[]string{"outcome"},
	)

	PaymentRequestsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_decided_total",
			Help: "Total payment requests decided by kind and status",
		},
		[]string{"kind", "status"},
	)

	PaymentRequestsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_created_total",
			Help: "Total payment requests created by kind",
		},
		[]string{"kind"},
	)

	ActionsRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "actions_rate_limited_total",
			Help: "Total user actions denied by the rate limiter",
		},
	)

	FlowsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flows_expired_total",
			Help: "Total conversation flows expired by the sweeper",
		},
	)

	ActionsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_processed_total",
			Help: "Total user actions processed by kind",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(BetsSettled)
	prometheus.MustRegister(PaymentRequestsDecided)
	prometheus.MustRegister(PaymentRequestsCreated)
	prometheus.MustRegister(ActionsRateLimited)
	prometheus.MustRegister(FlowsExpired)
	prometheus.MustRegister(ActionsProcessed)
}
