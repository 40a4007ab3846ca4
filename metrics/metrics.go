// Package metrics 以 Prometheus 暴露服務指標，由 /metrics 提供
package metrics

import (
	"freelance-hub/backend/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MeetingActivity = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_activity_total",
		Help: "Join/leave signals processed, by action and outcome.",
	}, []string{"action", "outcome"})

	ActiveMeetingsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetings_ended_total",
		Help: "Meetings that ended because the last participant left.",
	})

	TeamOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "team_operations_total",
		Help: "Team mutations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	WriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_write_conflicts_total",
		Help: "Optimistic concurrency conflicts that triggered a retry.",
	}, []string{"collection"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route template, method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_live_connections",
		Help: "Open websocket connections watching meeting presence.",
	})
)

// Outcome 將錯誤轉為指標標籤：ok 或錯誤種類
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperror.KindOf(err).String()
}
