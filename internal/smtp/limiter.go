package smtp

import (
	"sync"

	"golang.org/x/time/rate"
)

// ConnectionLimiter SMTP 连接限流器
//
// 同时限制并发连接总数和每秒新建连接速率，
// 速率部分使用令牌桶实现。
type ConnectionLimiter struct {
	maxConns int
	current  int
	mu       sync.Mutex
	limiter  *rate.Limiter
}

// NewConnectionLimiter 创建连接限流器
//
// 参数:
//   - maxConns: 最大并发连接数
//   - maxPerSecond: 每秒最大新建连接数
func NewConnectionLimiter(maxConns, maxPerSecond int) *ConnectionLimiter {
	if maxConns <= 0 {
		maxConns = 100
	}
	if maxPerSecond <= 0 {
		maxPerSecond = 20
	}

	return &ConnectionLimiter{
		maxConns: maxConns,
		limiter:  rate.NewLimiter(rate.Limit(maxPerSecond), maxPerSecond),
	}
}

// Acquire 获取连接许可
//
// 返回值:
//   - bool: 是否获取成功
func (l *ConnectionLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxConns {
		return false
	}

	if !l.limiter.Allow() {
		return false
	}

	l.current++
	return true
}

// Release 释放连接
func (l *ConnectionLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current > 0 {
		l.current--
	}
}

// Current 当前连接数
func (l *ConnectionLimiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
