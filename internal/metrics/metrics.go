// Package metrics holds the process-wide metrics and the HTTP server exposing them.
// Package specific metrics live next to the code that records them.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

var (
	processStart = time.Now()

	uptime = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "chaindemux_uptime_seconds",
			Help: "Seconds since the process started",
		},
		func() float64 { return time.Since(processStart).Seconds() },
	)

	componentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_errors_total",
			Help: "Errors reported by components, by severity",
		},
		[]string{"component", "severity"},
	)

	componentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaindemux_component_health",
			Help: "Component health (1 healthy, 0 failed)",
		},
		[]string{"component"},
	)

	goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaindemux_goroutines",
			Help: "Number of active goroutines",
		},
	)

	memory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaindemux_memory_bytes",
			Help: "Go runtime memory statistics",
		},
		[]string{"type"},
	)
)

func ErrorsInc(component, severity string) {
	componentErrors.WithLabelValues(component, severity).Inc()
}

// ComponentHealthy marks component as healthy.
func ComponentHealthy(component string) {
	componentHealth.WithLabelValues(component).Set(1)
}

// ComponentFailed marks component as failed and counts the error.
func ComponentFailed(component string) {
	componentHealth.WithLabelValues(component).Set(0)
	ErrorsInc(component, SeverityError)
}

// ComponentDegraded counts a recoverable error without changing the component's health.
func ComponentDegraded(component string) {
	ErrorsInc(component, SeverityWarning)
}

// UpdateSystemMetrics samples goroutine and memory statistics. The server calls it periodically.
func UpdateSystemMetrics() {
	goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memory.WithLabelValues("heap_alloc").Set(float64(m.HeapAlloc))
	memory.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
	memory.WithLabelValues("sys").Set(float64(m.Sys))
	memory.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
}
