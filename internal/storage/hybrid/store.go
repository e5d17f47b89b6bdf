package hybrid

import (
	"fmt"
	"time"

	"mailrelay/backend/internal/domain"
	sqlstore "mailrelay/backend/internal/storage/sql"
	"mailrelay/backend/internal/storage/redis"
)

// 地址查询缓存的生存时间。短于邮箱 TTL，避免缓存里残留过期邮箱太久。
const addressCacheTTL = 30 * time.Second

// Store 混合存储实现，结合 SQL 数据库与 Redis 缓存。
//
// SQL 是唯一可信数据源；Redis 只缓存入站投递路径的地址查询结果，
// 并承担限流计数。
type Store struct {
	sql   *sqlstore.Store
	cache *redis.Cache
}

// NewStore 创建混合存储实例。
func NewStore(
	dbType, dsn string,
	maxOpenConns, maxIdleConns int,
	connMaxLifetime time.Duration,
	redisAddr, redisPassword string,
	redisDB int,
) (*Store, error) {
	dbStore, err := sqlstore.NewStore(dbType, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		sql:   dbStore,
		cache: cache,
	}, nil
}

// ========== Mailbox Repository ==========

// SaveMailbox 保存邮箱信息
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	if err := s.sql.SaveMailbox(mailbox); err != nil {
		return err
	}
	// 缓存写失败不影响主流程
	_ = s.cache.CacheMailboxByAddress(mailbox, addressCacheTTL)
	return nil
}

// GetMailbox 根据 ID 获取邮箱
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	return s.sql.GetMailbox(id)
}

// GetActiveMailboxByAddress 根据完整地址获取激活且未过期的邮箱。
//
// 先查 Redis，命中且仍可接收则直接返回；否则回源 SQL 并回填缓存。
func (s *Store) GetActiveMailboxByAddress(address string) (*domain.Mailbox, error) {
	if cached, err := s.cache.GetCachedMailboxByAddress(address); err == nil {
		if cached.Receivable(time.Now()) {
			return cached, nil
		}
		_ = s.cache.DeleteCachedMailboxByAddress(address)
	}

	mailbox, err := s.sql.GetActiveMailboxByAddress(address)
	if err != nil {
		return nil, err
	}

	_ = s.cache.CacheMailboxByAddress(mailbox, addressCacheTTL)
	return mailbox, nil
}

// DeleteExpiredMailboxes 删除所有过期的邮箱，返回删除数量
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	return s.sql.DeleteExpiredMailboxes()
}

// ========== Message Repository ==========

// SaveMessage 保存邮件信息
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.sql.SaveMessage(message)
}

// ListMessages 按接收时间倒序返回某个邮箱下的全部邮件
func (s *Store) ListMessages(mailboxID string) ([]domain.Message, error) {
	return s.sql.ListMessages(mailboxID)
}

// GetMessage 按 ID 获取单封邮件
func (s *Store) GetMessage(messageID string) (*domain.Message, error) {
	return s.sql.GetMessage(messageID)
}

// ========== RateLimit Repository ==========

// IncrementRateLimit 自增限流计数
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.cache.IncrementRateLimit(key, window)
}

// ========== 工具方法 ==========

// Close 关闭底层连接
func (s *Store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.sql.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Health 检查存储健康状态
func (s *Store) Health() error {
	if err := s.sql.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.cache.Ping(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
