package storage

import (
	"errors"
	"time"

	"mailrelay/backend/internal/domain"
)

var (
	// ErrMailboxNotFound 邮箱不存在或已过期。
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMessageNotFound 邮件不存在。
	ErrMessageNotFound = errors.New("message not found")
)

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	SaveMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	// GetActiveMailboxByAddress 只返回激活且未过期的邮箱，入站投递专用。
	GetActiveMailboxByAddress(address string) (*domain.Mailbox, error)
	DeleteExpiredMailboxes() (int, error) // 删除过期邮箱，返回删除数量
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	// ListMessages 按 received_at 倒序返回邮箱内全部邮件。
	ListMessages(mailboxID string) ([]domain.Message, error)
	GetMessage(messageID string) (*domain.Message, error)
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	MessageRepository
	RateLimitRepository

	Close() error
	Health() error
}
