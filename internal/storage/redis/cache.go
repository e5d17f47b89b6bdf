package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailrelay/backend/internal/domain"
)

// Cache Redis 缓存实现，承担热点邮箱地址查询缓存与限流计数。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// ========== 邮箱缓存 ==========

// CacheMailboxByAddress 按地址缓存邮箱信息，加速入站投递路径的查询。
func (c *Cache) CacheMailboxByAddress(mailbox *domain.Mailbox, ttl time.Duration) error {
	key := fmt.Sprintf("mailbox:addr:%s", mailbox.Address)
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedMailboxByAddress 获取按地址缓存的邮箱信息
func (c *Cache) GetCachedMailboxByAddress(address string) (*domain.Mailbox, error) {
	key := fmt.Sprintf("mailbox:addr:%s", address)
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("mailbox not found in cache")
		}
		return nil, err
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal([]byte(data), &mailbox); err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// DeleteCachedMailboxByAddress 删除按地址缓存的邮箱信息
func (c *Cache) DeleteCachedMailboxByAddress(address string) error {
	key := fmt.Sprintf("mailbox:addr:%s", address)
	return c.client.Del(c.ctx, key).Err()
}

// ========== 限流计数 ==========

// IncrementRateLimit 自增限流计数，首次写入时设置窗口过期时间。
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(c.ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(c.ctx, redisKey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Ping 测试 Redis 连接
func (c *Cache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
