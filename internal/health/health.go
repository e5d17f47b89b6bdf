package health

import (
	"context"
	"database/sql"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailrelay/backend/internal/storage"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 协程数异常通常意味着连接泄漏
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(2000))

	// 存储可达性决定服务是否就绪
	if hc.store != nil {
		hc.health.AddReadinessCheck("storage", func() error {
			return hc.store.Health()
		})
	}
}

// Handler 返回健康检查处理器
func (hc *HealthChecker) Handler() healthcheck.Handler {
	return hc.health
}

// DatabaseHealthCheck 数据库连接健康检查
func DatabaseHealthCheck(db *sql.DB) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return db.PingContext(ctx)
	}
}

// RateLimitHealthCheck 限流存储健康检查，通过一次计数操作验证可用性
func RateLimitHealthCheck(store storage.RateLimitRepository) healthcheck.Check {
	return func() error {
		_, err := store.IncrementRateLimit("health_check", time.Minute)
		return err
	}
}
