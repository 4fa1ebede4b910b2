package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sinkLog   = "log"
	sinkRedis = "redis"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_notifications_sent_total",
			Help: "Total number of notifications delivered by sink",
		},
		[]string{"sink"},
	)

	notificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaindemux_notifications_failed_total",
			Help: "Total number of notifications that could not be delivered by sink",
		},
		[]string{"sink"},
	)
)

func NotificationSentInc(sink string) {
	notificationsSent.WithLabelValues(sink).Inc()
}

func NotificationFailedInc(sink string) {
	notificationsFailed.WithLabelValues(sink).Inc()
}
