package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtpay",
			Name:      "confirmations_total",
			Help:      "Booking confirmations by channel.",
		},
		[]string{"channel"},
	)

	capacityConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtpay",
			Name:      "capacity_conflicts_total",
			Help:      "Confirm attempts rejected because the slot was full.",
		},
	)

	settlementLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtpay",
			Name:      "settlement_lines_total",
			Help:      "Settlement line items recorded.",
		},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtpay",
			Name:      "notification_failures_total",
			Help:      "Best-effort notification deliveries that failed.",
		},
	)

	reconciliations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtpay",
			Name:      "reconciliations_total",
			Help:      "Captured payments queued for manual reconciliation.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(confirmations, capacityConflicts, settlementLines, notificationFailures, reconciliations)
	})
}

func IncConfirmation(channel string) {
	confirmations.WithLabelValues(channel).Inc()
}

func IncCapacityConflict() {
	capacityConflicts.Inc()
}

func IncSettlementLine() {
	settlementLines.Inc()
}

func IncNotificationFailure() {
	notificationFailures.Inc()
}

func IncReconciliation() {
	reconciliations.Inc()
}
