package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/storage"
)

// MailboxCreateLimit 按来源 IP 限制邮箱创建频率
func MailboxCreateLimit(repo storage.RateLimitRepository, maxPerWindow int, window time.Duration, metrics *monitoring.Metrics, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if repo == nil || maxPerWindow <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("mailbox:create:%s", c.ClientIP())

		count, err := repo.IncrementRateLimit(key, window)
		if err != nil {
			// 计数失败时放行,限流不应阻断正常服务
			log.Warn("限流计数失败", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if count > int64(maxPerWindow) {
			if metrics != nil {
				metrics.RecordRateLimitBlock("mailbox_create")
			}
			log.Warn("邮箱创建触发限流",
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
				zap.Int("limit", maxPerWindow),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many mailboxes created, try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
