package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var retries = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "chaindemux_retries_total",
		Help: "Total number of retried operations",
	},
)

func RetriesInc() {
	retries.Inc()
}
