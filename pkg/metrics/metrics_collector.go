package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// 所有方法对 nil 接收者安全，未启用指标时直接传 nil
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	votesTotal         *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	repliesTotal       prometheus.Counter
	postsTotal         prometheus.Counter
	dependencyErrors   *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec
}

// NewMetricsCollector 在指定 Registerer 上创建指标收集器
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	f := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		votesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_votes_total",
				Help: "Vote ledger transitions by target and outcome",
			},
			[]string{"target", "outcome"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_notifications_total",
				Help: "Notifications dispatched by type and result",
			},
			[]string{"type", "result"},
		),
		repliesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forum_replies_total",
			Help: "Replies submitted",
		}),
		postsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forum_posts_total",
			Help: "Posts created",
		}),
		dependencyErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_dependency_errors_total",
				Help: "Failures of external collaborators (chat, news, push)",
			},
			[]string{"dependency"},
		),
		cacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_prefix"},
		),
		cacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_prefix"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordVote 记录投票结果 outcome: created / cancelled / rejected
func (m *MetricsCollector) RecordVote(target, outcome string) {
	if m == nil {
		return
	}
	m.votesTotal.WithLabelValues(target, outcome).Inc()
}

// RecordNotification 记录通知分发 result: created / failed / skipped
func (m *MetricsCollector) RecordNotification(notificationType, result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(notificationType, result).Inc()
}

// RecordPost 记录发帖
func (m *MetricsCollector) RecordPost() {
	if m == nil {
		return
	}
	m.postsTotal.Inc()
}

// RecordReply 记录回复
func (m *MetricsCollector) RecordReply() {
	if m == nil {
		return
	}
	m.repliesTotal.Inc()
}

// RecordDependencyError 记录外部依赖失败
func (m *MetricsCollector) RecordDependencyError(dependency string) {
	if m == nil {
		return
	}
	m.dependencyErrors.WithLabelValues(dependency).Inc()
}

// RecordCacheOperation 记录缓存命中情况
func (m *MetricsCollector) RecordCacheOperation(keyPrefix string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHitsTotal.WithLabelValues(keyPrefix).Inc()
	} else {
		m.cacheMissesTotal.WithLabelValues(keyPrefix).Inc()
	}
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// InitMetrics 在默认 Registerer 上初始化全局收集器
func InitMetrics() {
	once.Do(func() {
		globalCollector = NewMetricsCollector(prometheus.DefaultRegisterer)
	})
}

// GetGlobalCollector 获取全局收集器，未初始化时返回 nil
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
