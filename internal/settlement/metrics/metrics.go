package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsProcessed tracks processed payments by transaction type
	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payments_processed_total",
			Help: "Total number of payments processed",
		},
		[]string{"type"},
	)

	// PaymentVolume tracks total value moved by transaction type
	PaymentVolume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payment_volume_total",
			Help: "Total payment volume in minor units",
		},
		[]string{"type"},
	)

	// FeesCollected tracks the platform fee pool balance
	FeesCollected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_fees_collected",
			Help: "Current collected platform fees in minor units",
		},
	)

	// EscrowsActive tracks the number of escrows currently locked
	EscrowsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_escrows_active",
			Help: "Number of escrow accounts in locked state",
		},
	)

	// DisputesByOutcome tracks dispute terminal transitions
	DisputesByOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_disputes_total",
			Help: "Total disputes by terminal outcome",
		},
		[]string{"outcome"},
	)

	// PointsAwarded tracks loyalty points awarded
	PointsAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_loyalty_points_awarded_total",
			Help: "Total loyalty points awarded",
		},
	)

	// FlowDuration tracks orchestrator flow latency
	FlowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_flow_duration_seconds",
			Help:    "Orchestrator flow duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	// StepFailures tracks saga step failures by step name
	StepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_step_failures_total",
			Help: "Total saga step failures",
		},
		[]string{"step"},
	)

	// TailRetries tracks tail-only retry invocations
	TailRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_tail_retries_total",
			Help: "Total tail-step retry invocations",
		},
	)

	// DBConnectionPoolUsage tracks database pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
