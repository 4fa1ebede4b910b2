package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted = "committed"
	outcomeSeek      = "seek"
	outcomeFork      = "fork"
	outcomeFailed    = "failed"
)

var (
	blocksHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_blocks_handled_total",
			Help: "Total number of blocks handed to the action handler by outcome",
		},
		[]string{"outcome"},
	)

	actionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_actions_applied_total",
			Help: "Total number of committed actions by the handler version that processed them",
		},
		[]string{"version"},
	)

	effectsRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_effects_run_total",
			Help: "Total number of effects that completed successfully",
		},
		[]string{"version"},
	)

	effectsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_effects_failed_total",
			Help: "Total number of effects that returned an error",
		},
		[]string{"version", "action"},
	)

	versionUpgrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_version_upgrades_total",
			Help: "Total number of handler version transitions",
		},
		[]string{"from", "to"},
	)

	activeVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaindemux_active_version_info",
			Help: "Currently active handler version (1 for the active one)",
		},
		[]string{"version"},
	)

	lastCommittedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaindemux_last_committed_block",
			Help: "Block number of the last committed block",
		},
	)

	blockHandleTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaindemux_block_handle_duration_seconds",
			Help:    "Time taken to apply and commit a block",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func BlockHandledInc(outcome string) {
	blocksHandled.WithLabelValues(outcome).Inc()
}

func ActionsAppliedAdd(version string, count int) {
	actionsApplied.WithLabelValues(version).Add(float64(count))
}

func EffectRunInc(version string) {
	effectsRun.WithLabelValues(version).Inc()
}

func EffectFailedInc(version, action string) {
	effectsFailed.WithLabelValues(version, action).Inc()
}

func VersionUpgradeInc(from, to string) {
	versionUpgrades.WithLabelValues(from, to).Inc()
}

func ActiveVersionSet(version string) {
	activeVersion.Reset()
	activeVersion.WithLabelValues(version).Set(1)
}

func LastCommittedBlockSet(blockNum uint64) {
	lastCommittedBlock.Set(float64(blockNum))
}

func BlockHandleTimeLog(duration time.Duration) {
	blockHandleTime.Observe(duration.Seconds())
}
