// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Total number of reminder dispatch attempts by outcome",
		},
		[]string{"type", "channel", "status"},
	)

	ReminderSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_send_duration_seconds",
			Help:    "Duration of channel sends in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	SchedulerPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_scheduler_passes_total",
			Help: "Total number of selection passes by trigger and result",
		},
		[]string{"pass", "trigger", "result"},
	)

	SchedulerPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reminder_scheduler_pass_duration_seconds",
			Help: "Duration of selection passes in seconds",
		},
		[]string{"pass"},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_scheduler_running",
			Help: "1 while the recurring trigger is active",
		},
	)

	LogAppendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_log_append_failures_total",
			Help: "Total number of notification log appends that failed",
		},
		[]string{"error_code"},
	)
)
