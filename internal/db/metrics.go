package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaindemux_maintenance_runs_total",
			Help: "Total number of maintenance operations",
		},
	)

	maintenanceOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_maintenance_outcomes_total",
			Help: "Total number of maintenance operations by outcome",
		},
		[]string{"status"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaindemux_maintenance_duration_seconds",
			Help:    "Duration of maintenance operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_wal_checkpoint_total",
			Help: "Total number of WAL checkpoint operations",
		},
		[]string{"mode"},
	)

	transactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_db_transactions_total",
			Help: "State database transactions by outcome (committed, rolled_back, failed)",
		},
		[]string{"outcome"},
	)

	transactionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaindemux_db_transaction_duration_seconds",
			Help:    "Time from begin to commit or rollback of state database transactions",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaindemux_db_size_bytes",
			Help: "State database size in bytes including WAL",
		},
	)
)

func MaintenanceRunsInc() {
	maintenanceRuns.Inc()
}

func MaintenanceOutcomeInc(status string) {
	maintenanceOutcomes.WithLabelValues(status).Inc()
}

func MaintenanceDurationLog(duration time.Duration) {
	maintenanceDuration.Observe(duration.Seconds())
}

func WALCheckpointInc(mode string) {
	walCheckpoints.WithLabelValues(mode).Inc()
}

const (
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
	TxFailed     = "failed"
)

// TransactionLog records the outcome and duration of one state transaction.
func TransactionLog(outcome string, duration time.Duration) {
	transactions.WithLabelValues(outcome).Inc()
	transactionDuration.Observe(duration.Seconds())
}

func DBSizeLog(sizeBytes int64) {
	dbSize.Set(float64(sizeBytes))
}
