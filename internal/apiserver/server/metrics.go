// Package server Prometheus 指标导出
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 包含所有 API Server 指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 业务指标
	UsersByRole     *prometheus.GaugeVec
	UsersByStatus   *prometheus.GaugeVec
	SessionsTotal   *prometheus.GaugeVec
	ReferralsActive prometheus.Gauge
	SessionsExpired prometheus.Counter

	// 外部依赖指标
	GeocodeRequestsTotal *prometheus.CounterVec
	UploadBytesTotal     prometheus.Counter

	// WebSocket 指标
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec
}

// NewMetrics 创建指标实例
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		UsersByRole: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "users_by_role",
				Help:      "Total users by role",
			},
			[]string{"role"},
		),
		UsersByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "users_by_status",
				Help:      "Total users by approval status",
			},
			[]string{"status"},
		),
		SessionsTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total sessions by status",
			},
			[]string{"status"},
		),
		ReferralsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "referrals_active",
				Help:      "Referrals currently in matched status",
			},
		),
		SessionsExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_expired_total",
				Help:      "Requested sessions canceled by the expiry sweeper",
			},
		),
		GeocodeRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geocode_requests_total",
				Help:      "Address suggestion lookups by source",
			},
			[]string{"source"},
		),
		UploadBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "Total bytes uploaded to object storage",
			},
		),
		WSConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections_active",
				Help:      "Active WebSocket connections",
			},
		),
		WSMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_messages_total",
				Help:      "Total WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		DBQueryTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation", "table"},
		),
	}
}

// MetricsMiddleware 创建 HTTP 指标中间件
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		// 包装 ResponseWriter 以捕获状态码
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter 包装 http.ResponseWriter 以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath 规范化路径，将 ID 替换为占位符，避免高基数
func normalizePath(path string) string {
	// 例如 /api/v1/users/usr-123 -> /api/v1/users/{id}
	for _, prefix := range []string{"/api/v1/users/", "/api/v1/sessions/", "/api/v1/referrals/"} {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		// 保留非 ID 子路径（suggestions、recent 等）
		if rest == "suggestions" || rest == "recent" || rest == "address-suggestions" {
			return path
		}
		base := prefix + "{id}"
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			sub := rest[idx:]
			if strings.HasPrefix(sub, "/images/") {
				return base + "/images/{key}"
			}
			return base + sub
		}
		return base
	}
	return path
}

// MetricsHandler 返回 Prometheus HTTP Handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordDBQuery 记录数据库查询指标
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordGeocodeRequest 记录地址补全查询，source 为 cache 或 gateway
func (m *Metrics) RecordGeocodeRequest(source string) {
	m.GeocodeRequestsTotal.WithLabelValues(source).Inc()
}

// RecordUpload 记录对象存储上传字节数
func (m *Metrics) RecordUpload(bytes int64) {
	m.UploadBytesTotal.Add(float64(bytes))
}

// RecordExpiredSessions 记录被清理的过期会话请求数
func (m *Metrics) RecordExpiredSessions(count int) {
	m.SessionsExpired.Add(float64(count))
}

// RecordWSMessage 记录 WebSocket 消息
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// SetUsersByRole 设置按角色统计的用户数量
func (m *Metrics) SetUsersByRole(role string, count int) {
	m.UsersByRole.WithLabelValues(role).Set(float64(count))
}

// SetUsersByStatus 设置按审核状态统计的用户数量
func (m *Metrics) SetUsersByStatus(status string, count int) {
	m.UsersByStatus.WithLabelValues(status).Set(float64(count))
}

// SetSessionsCount 设置会话数量
func (m *Metrics) SetSessionsCount(status string, count int) {
	m.SessionsTotal.WithLabelValues(status).Set(float64(count))
}

// SetActiveReferrals 设置活跃推荐数量
func (m *Metrics) SetActiveReferrals(count int) {
	m.ReferralsActive.Set(float64(count))
}

// WSConnectionOpened WebSocket 连接打开
func (m *Metrics) WSConnectionOpened() {
	m.WSConnectionsActive.Inc()
}

// WSConnectionClosed WebSocket 连接关闭
func (m *Metrics) WSConnectionClosed() {
	m.WSConnectionsActive.Dec()
}
