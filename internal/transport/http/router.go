package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/ingest"
	"mailrelay/backend/internal/middleware"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/websocket"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	inbound   *ingest.Adapter
	metrics   *monitoring.Metrics
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	MessageService *service.MessageService
	InboundAdapter *ingest.Adapter
	WebSocketHub   *websocket.Hub
	Store          storage.Store
	Metrics        *monitoring.Metrics
	Health         healthcheck.Handler
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	if deps.Metrics != nil {
		mon := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(mon.PanicRecovery())
		router.Use(mon.HTTPMetrics())
	} else {
		router.Use(middleware.RecoveryHandler(deps.Logger))
	}
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultMaxBodyBytes))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		mailboxes: deps.MailboxService,
		messages:  deps.MessageService,
		inbound:   deps.InboundAdapter,
		metrics:   deps.Metrics,
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// ========== Mailbox Routes ==========
	mailboxRoutes := router.Group("/mailbox")
	{
		createHandlers := []gin.HandlerFunc{}
		if deps.Store != nil && deps.Config.Mailbox.MaxPerIP > 0 {
			createHandlers = append(createHandlers, middleware.MailboxCreateLimit(
				deps.Store,
				deps.Config.Mailbox.MaxPerIP,
				deps.Config.Mailbox.RateLimitWindow,
				deps.Metrics,
				deps.Logger,
			))
		}
		createHandlers = append(createHandlers, handler.createMailbox)

		mailboxRoutes.POST("", createHandlers...)
		mailboxRoutes.GET("/:id/messages", handler.listMessages)
	}

	// ========== Message Routes ==========
	router.GET("/messages/:id", handler.getMessage)

	// ========== Webhook Routes ==========
	router.POST("/webhooks/inbound-email", handler.inboundEmail)

	// ========== WebSocket Routes ==========
	if deps.WebSocketHub != nil {
		router.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
	}

	return router
}
