package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailboxConfig 定义邮箱服务的核心业务配置
type MailboxConfig struct {
	Domain          string        // 邮箱地址的域名后缀
	TTL             time.Duration // 邮箱生存时间，过期后自动清理
	LocalPartLength int           // 随机本地部分长度，默认 10
	CleanupInterval time.Duration // 过期清扫周期，默认 10 分钟
	MaxPerIP        int           // 单个 IP 在限流窗口内最多可创建的邮箱数量
	RateLimitWindow time.Duration // 邮箱创建限流窗口
}

// SMTPConfig 定义 SMTP 邮件接收服务器的配置
type SMTPConfig struct {
	Enabled        bool   // 是否启动 SMTP 接收通道
	BindAddr       string // SMTP 服务监听地址，格式 "host:port"，默认 ":25"
	Domain         string // SMTP 服务器域名，用于 HELO/EHLO 响应
	MaxConnections int    // 最大并发连接数
	MaxPerSecond   int    // 每秒最大新建连接数
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Mailbox  MailboxConfig  // 邮箱服务配置
	SMTP     SMTPConfig     // SMTP 接收配置
	CORS     CORSConfig     // 跨域配置
	Log      LogConfig      // 日志配置
	Database DatabaseConfig // 数据库配置
	Redis    RedisConfig    // Redis 配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILRELAY_
// 例如: MAILRELAY_MAILBOX_DOMAIN, MAILRELAY_MAILBOX_TTL_MINUTES
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailrelay")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.domain", "relay.mail")
	viper.SetDefault("mailbox.ttl_minutes", 60)
	viper.SetDefault("mailbox.local_part_length", 10)
	viper.SetDefault("mailbox.cleanup_interval", "10m")
	viper.SetDefault("mailbox.max_per_ip", 30)
	viper.SetDefault("mailbox.rate_limit_window", "1h")
	viper.SetDefault("smtp.enabled", false)
	viper.SetDefault("smtp.bind_addr", ":25")
	viper.SetDefault("smtp.domain", "relay.mail")
	viper.SetDefault("smtp.max_connections", 100)
	viper.SetDefault("smtp.max_per_second", 20)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	mailDomain := strings.ToLower(strings.TrimSpace(viper.GetString("mailbox.domain")))
	if mailDomain == "" {
		return nil, fmt.Errorf("mailbox.domain must not be empty")
	}

	ttlMinutes := viper.GetInt("mailbox.ttl_minutes")
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("invalid mailbox.ttl_minutes: %d", ttlMinutes)
	}

	localPartLength := viper.GetInt("mailbox.local_part_length")
	if localPartLength <= 0 {
		localPartLength = 10
	}

	cleanupInterval, err := time.ParseDuration(viper.GetString("mailbox.cleanup_interval"))
	if err != nil || cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	maxPerIP := viper.GetInt("mailbox.max_per_ip")
	if maxPerIP <= 0 {
		maxPerIP = 30
	}

	rateLimitWindow, err := time.ParseDuration(viper.GetString("mailbox.rate_limit_window"))
	if err != nil || rateLimitWindow <= 0 {
		rateLimitWindow = time.Hour
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			Domain:          mailDomain,
			TTL:             time.Duration(ttlMinutes) * time.Minute,
			LocalPartLength: localPartLength,
			CleanupInterval: cleanupInterval,
			MaxPerIP:        maxPerIP,
			RateLimitWindow: rateLimitWindow,
		},
		SMTP: SMTPConfig{
			Enabled:        viper.GetBool("smtp.enabled"),
			BindAddr:       viper.GetString("smtp.bind_addr"),
			Domain:         viper.GetString("smtp.domain"),
			MaxConnections: viper.GetInt("smtp.max_connections"),
			MaxPerSecond:   viper.GetInt("smtp.max_per_second"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 环境变量不会被覆盖（已存在的环境变量优先级更高）。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
