package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// TokenRejections counts bearer tokens refused by reason (missing|expired|malformed|signature).
	TokenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_token_rejections_total",
			Help: "Total number of rejected session tokens",
		},
		[]string{"reason"},
	)

	// RoleChecks counts role evaluations and their outcome (allow|deny|error).
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_role_checks_total",
			Help: "Total number of role checks",
		},
		[]string{"result"},
	)

	// Invitations counts invitation lifecycle events by action (issue|redeem) and result.
	Invitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_invitations_total",
			Help: "Invitation issuance and redemption outcomes",
		},
		[]string{"action", "result"},
	)

	// Deliveries counts outbound notifications by channel (mail|push) and result.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_deliveries_total",
			Help: "Outbound email and push delivery outcomes",
		},
		[]string{"channel", "result"},
	)

	// BackgroundTasks counts asynchronous task executions by name and result (ok|error|dropped).
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_background_tasks_total",
			Help: "Background task outcomes",
		},
		[]string{"task", "result"},
	)

	// MaintenanceRuns counts cleanup job executions by job and result (ok|error).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picketer_maintenance_runs_total",
			Help: "Periodic cleanup job outcomes",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picketer_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picketer_api_requests_in_flight",
			Help: "Requests currently being served",
		},
	)
)
