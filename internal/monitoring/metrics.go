package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesExpired prometheus.Counter

	// 入站邮件指标
	MessagesIngested prometheus.Counter
	IngestsIgnored   *prometheus.CounterVec

	// WebSocket 指标
	WebSocketClients       prometheus.Gauge
	NotificationsBroadcast prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrelay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailrelay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailrelay_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailrelay_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		// 邮箱指标
		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrelay_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrelay_mailboxes_expired_total",
				Help: "Total number of expired mailboxes removed",
			},
		),

		// 入站邮件指标
		MessagesIngested: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrelay_messages_ingested_total",
				Help: "Total number of inbound messages stored",
			},
		),

		IngestsIgnored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrelay_ingests_ignored_total",
				Help: "Total number of inbound deliveries ignored",
			},
			[]string{"reason"},
		),

		// WebSocket 指标
		WebSocketClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mailrelay_websocket_clients",
				Help: "Number of connected WebSocket clients",
			},
		),

		NotificationsBroadcast: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrelay_notifications_broadcast_total",
				Help: "Total number of new-mail notifications broadcast",
			},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrelay_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrelay_panics_total",
				Help: "Total number of panics",
			},
		),

		// 限流指标
		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrelay_rate_limit_blocks_total",
				Help: "Total number of rate limit blocks",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordMailboxCreated 记录邮箱创建
func (m *Metrics) RecordMailboxCreated() {
	m.MailboxesCreated.Inc()
}

// RecordMailboxesExpired 记录邮箱过期清理数量
func (m *Metrics) RecordMailboxesExpired(count int) {
	m.MailboxesExpired.Add(float64(count))
}

// RecordMessageIngested 记录入站邮件入库
func (m *Metrics) RecordMessageIngested() {
	m.MessagesIngested.Inc()
}

// RecordIngestIgnored 记录被忽略的入站投递
func (m *Metrics) RecordIngestIgnored(reason string) {
	m.IngestsIgnored.WithLabelValues(reason).Inc()
}

// RecordNotificationBroadcast 记录新邮件通知广播
func (m *Metrics) RecordNotificationBroadcast() {
	m.NotificationsBroadcast.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// SetWebSocketClients 更新在线 WebSocket 客户端数
func (m *Metrics) SetWebSocketClients(count int) {
	m.WebSocketClients.Set(float64(count))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
