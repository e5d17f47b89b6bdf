package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/health"
	"mailrelay/backend/internal/ingest"
	"mailrelay/backend/internal/logger"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/pool"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/smtp"
	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/storage/hybrid"
	"mailrelay/backend/internal/storage/memory"
	httptransport "mailrelay/backend/internal/transport/http"
	"mailrelay/backend/internal/websocket"
)

// main 启动同时包含 HTTP API 与可选 SMTP 接收通道的邮件中继服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSizeMB:   100,
		MaxBackups:  3,
		MaxAgeDays:  28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting mailrelay server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("mail_domain", cfg.Mailbox.Domain),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = hybrid.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, log)

	// 服务层
	mailboxService := service.NewMailboxService(store, cfg)
	messageService := service.NewMessageService(store)

	// WebSocket Hub 与入站投递
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, metrics, log)
	workers := pool.NewWorkerPool(4, 256, log)
	inboundAdapter := ingest.NewAdapter(mailboxService, messageService, wsHub, workers, metrics, log)

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MailboxService: mailboxService,
		MessageService: messageService,
		InboundAdapter: inboundAdapter,
		WebSocketHub:   wsHub,
		Store:          store,
		Metrics:        metrics,
		Health:         healthChecker.Handler(),
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SMTP 服务器（按配置开启）
	var smtpServer *gosmtp.Server
	if cfg.SMTP.Enabled {
		limiter := smtp.NewConnectionLimiter(cfg.SMTP.MaxConnections, cfg.SMTP.MaxPerSecond)
		smtpBackend := smtp.NewBackend(mailboxService, messageService, wsHub, cfg.Mailbox.Domain, limiter, log)

		smtpServer = gosmtp.NewServer(smtpBackend)
		smtpServer.Addr = cfg.SMTP.BindAddr
		smtpServer.Domain = cfg.SMTP.Domain
		smtpServer.ReadTimeout = 10 * time.Second
		smtpServer.WriteTimeout = 10 * time.Second
		smtpServer.MaxMessageBytes = 10 * 1024 * 1024
		smtpServer.MaxRecipients = 50
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// 通知工作池
	workers.Start(groupCtx)
	defer workers.Stop()

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	if smtpServer != nil {
		group.Go(func() error {
			log.Info("starting SMTP server",
				zap.String("address", cfg.SMTP.BindAddr),
				zap.String("domain", cfg.SMTP.Domain),
			)
			if err := smtpServer.ListenAndServe(); err != nil {
				log.Error("SMTP server error", zap.Error(err))
				return err
			}
			return nil
		})
	}

	// 定时清理过期邮箱 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Mailbox.CleanupInterval)
		defer ticker.Stop()

		log.Info("starting expired mailbox cleanup task", zap.Duration("interval", cfg.Mailbox.CleanupInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("cleanup task stopped")
				return nil
			case <-ticker.C:
				count, err := mailboxService.CleanupExpired()
				if err != nil {
					log.Error("failed to cleanup expired mailboxes", zap.Error(err))
					metrics.RecordError("cleanup", "mailbox")
				} else if count > 0 {
					metrics.RecordMailboxesExpired(count)
					log.Info("expired mailboxes cleaned up", zap.Int("count", count))
				}
			}
		}
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if smtpServer != nil {
			if err := smtpServer.Close(); err != nil {
				log.Warn("SMTP server close warning", zap.Error(err))
			}
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
