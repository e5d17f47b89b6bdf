package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailrelay/backend/internal/monitoring"
)

// MonitoringMiddleware 指标采集中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics, logger *zap.Logger) *MonitoringMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// HTTPMetrics 记录 HTTP 请求指标
func (m *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.metrics == nil {
			c.Next()
			return
		}

		start := time.Now()

		requestSize := c.Request.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		c.Next()

		// 使用路由模板避免路径参数导致标签爆炸
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			requestSize,
			int64(c.Writer.Size()),
		)
	}
}

// PanicRecovery 捕获 panic 并记录指标
func (m *MonitoringMiddleware) PanicRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if m.metrics != nil {
					m.metrics.RecordPanic()
					m.metrics.RecordError("panic", "http")
				}

				m.logger.Error("http panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Any("error", err),
					zap.Stack("stack"),
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
