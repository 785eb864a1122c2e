package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Namespace = "askap_notifier"

	// NotificationsTotal counts lifecycle hook results by hook and outcome (sent, repeat, suppressed, dropped, ignored, failed).
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_total",
		Help:      "Counter of notification decisions per lifecycle hook",
	}, []string{"hook", "outcome"})

	FlapTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "flap_transitions_total",
		Help:      "Counter of alert transitions into and out of the flapping state",
	}, []string{"state"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Latency of Slack webhook posts",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)
