package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_sessions_opened_total",
			Help: "Total number of registration sessions opened per strategy",
		},
		[]string{"strategy"},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_sessions_completed_total",
			Help: "Total number of registration sessions that produced an identity",
		},
		[]string{"strategy"},
	)

	SessionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_sessions_failed_total",
			Help: "Total number of failed registration attempts",
		},
		[]string{"strategy", "error_code"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signup_sessions_active",
			Help: "Number of registration sessions currently open",
		},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signup_external_call_duration_seconds",
			Help:    "Duration of calls to backend collaborators in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "outcome"},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_chat_turns_total",
			Help: "Total number of chatbot turns by outcome",
		},
		[]string{"outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// ObserveCall records one backend call.
func ObserveCall(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	ExternalCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
