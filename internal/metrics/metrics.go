// Package metrics 业务指标（Prometheus）
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartlab"

var (
	// AllocationsCreated 排课生成与审批新建的排课数
	AllocationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_created_total",
		Help:      "Allocations created, by source.",
	}, []string{"source"})

	// DaysSkipped 排课生成跳过的日期数，按原因码
	DaysSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schedule_days_skipped_total",
		Help:      "Days skipped during schedule generation, by reason.",
	}, []string{"reason"})

	// ReservationTransitions 申请状态迁移次数
	ReservationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_transitions_total",
		Help:      "Reservation status transitions, by target status.",
	}, []string{"to"})

	// ConcurrentConflicts 条件更新落空（并发修改）次数
	ConcurrentConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "concurrent_update_conflicts_total",
		Help:      "Compare-and-swap updates that affected zero rows.",
	}, []string{"operation"})

	// Taps 刷卡次数，按身份与结果
	Taps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "badge_taps_total",
		Help:      "Badge taps, by actor kind and outcome.",
	}, []string{"actor", "outcome"})

	// SessionsSwept 被超时清理强制结束的会话数
	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Active sessions force-completed by the overdue sweep.",
	})

	// NotificationFailures 通知投递失败次数，按通道
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Best-effort notification deliveries that failed, by sink.",
	}, []string{"sink"})

	// HTTPRequestDuration 接口耗时，按路由模板与状态码
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
