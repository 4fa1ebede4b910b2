package rollback

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_rollbacks_total",
			Help: "Total number of state rollbacks performed after a fork",
		},
		[]string{"strategy"},
	)

	rollbackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaindemux_rollback_depth_blocks",
			Help:    "Number of committed blocks reverted per rollback",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500},
		},
	)

	rollbackLast = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaindemux_rollback_last_timestamp",
			Help: "Unix timestamp of the last rollback",
		},
	)
)

// RollbackLog records a completed rollback.
func RollbackLog(strategy string, depth uint64) {
	rollbacks.WithLabelValues(strategy).Inc()
	rollbackDepth.Observe(float64(depth))
	rollbackLast.Set(float64(time.Now().UTC().Unix()))
}
