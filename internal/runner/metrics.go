package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaindemux_runner_blocks_read_total",
			Help: "Total number of blocks read from the block source",
		},
	)

	seeks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaindemux_runner_seeks_total",
			Help: "Total number of times the block source was repositioned",
		},
	)

	effectFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaindemux_runner_blocks_with_failed_effects_total",
			Help: "Total number of committed blocks whose effects reported failures",
		},
	)

	idlePolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaindemux_runner_idle_polls_total",
			Help: "Total number of polls that found no new block",
		},
	)
)

func BlockReadInc() {
	blocksRead.Inc()
}

func SeekInc() {
	seeks.Inc()
}

func EffectFailuresInc() {
	effectFailures.Inc()
}

func IdlePollInc() {
	idlePolls.Inc()
}
