package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boxflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_checkins_total",
			Help: "Total number of check-in attempts by result",
		},
		[]string{"result"},
	)

	CheckInConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxflow_checkin_conflicts_total",
			Help: "Total number of same-day check-in conflicts detected",
		},
	)

	CheckInCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxflow_checkin_cancellations_total",
			Help: "Total number of check-in cancellations",
		},
	)

	ClassChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_class_changes_total",
			Help: "Total number of change-class operations by outcome",
		},
		[]string{"outcome"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boxflow_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_payments_total",
			Help: "Total number of payment transactions",
		},
		[]string{"type"},
	)

	SubscriptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxflow_subscriptions_created_total",
			Help: "Total number of subscriptions created",
		},
		[]string{"plan"},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "boxflow_active_subscriptions",
			Help: "Number of active subscriptions",
		},
		[]string{"plan"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCheckIn(result string) {
	CheckInsTotal.WithLabelValues(result).Inc()
}

func RecordCheckInConflict() {
	CheckInConflictsTotal.Inc()
}

func RecordCheckInCancellation() {
	CheckInCancellationsTotal.Inc()
}

func RecordClassChange(outcome string) {
	ClassChangesTotal.WithLabelValues(outcome).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordPayment(txType string) {
	PaymentsTotal.WithLabelValues(txType).Inc()
}

func RecordSubscription(plan string) {
	SubscriptionsCreatedTotal.WithLabelValues(plan).Inc()
}
