package memory

import (
	"sort"
	"sync"
	"time"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// Store 使用内存保存邮箱与邮件数据，主要用于开发验证。
type Store struct {
	mu        sync.RWMutex
	mailboxes map[string]*domain.Mailbox
	byAddress map[string]string
	messages  map[string]map[string]*domain.Message // mailboxID -> messageID -> message
	byID      map[string]*domain.Message            // messageID -> message

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes:         make(map[string]*domain.Mailbox),
		byAddress:         make(map[string]string),
		messages:          make(map[string]map[string]*domain.Message),
		byID:              make(map[string]*domain.Message),
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: time.Now().Add(5 * time.Minute),
	}
}

// SaveMailbox 保存邮箱信息。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()

	s.mailboxes[mailbox.ID] = mailbox
	s.byAddress[mailbox.Address] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	mailbox, ok := s.mailboxes[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	if mailbox.Expired(time.Now()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deleteMailboxLocked(id)
		return nil, storage.ErrMailboxNotFound
	}
	return mailbox, nil
}

// GetActiveMailboxByAddress 根据完整地址获取激活且未过期的邮箱。
func (s *Store) GetActiveMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	id, ok := s.byAddress[address]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}

	mailbox, err := s.GetMailbox(id)
	if err != nil {
		return nil, err
	}
	if !mailbox.IsActive {
		return nil, storage.ErrMailboxNotFound
	}
	return mailbox, nil
}

// DeleteExpiredMailboxes 删除所有过期的邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for id, mb := range s.mailboxes {
		if mb.Expired(now) {
			s.deleteMailboxLocked(id)
			count++
		}
	}
	return count, nil
}

// deleteMailboxLocked 移除邮箱本体与地址索引。
//
// 邮件不做级联删除：按邮箱列表的入口随之消失，但 byID 索引保留，
// 单封邮件仍可按 ID 取到。
func (s *Store) deleteMailboxLocked(id string) {
	if mb, ok := s.mailboxes[id]; ok {
		delete(s.byAddress, mb.Address)
	}
	delete(s.mailboxes, id)
	delete(s.messages, id)
}

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()

	if _, ok := s.mailboxes[message.MailboxID]; !ok {
		return storage.ErrMailboxNotFound
	}

	if _, ok := s.messages[message.MailboxID]; !ok {
		s.messages[message.MailboxID] = make(map[string]*domain.Message)
	}
	s.messages[message.MailboxID][message.ID] = message
	s.byID[message.ID] = message

	return nil
}

// ListMessages 按接收时间倒序返回某个邮箱下的全部邮件。
func (s *Store) ListMessages(mailboxID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()

	msgMap, ok := s.messages[mailboxID]
	if !ok {
		return []domain.Message{}, nil
	}

	result := make([]domain.Message, 0, len(msgMap))
	for _, msg := range msgMap {
		result = append(result, *msg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	return result, nil
}

// GetMessage 按 ID 获取单封邮件。
func (s *Store) GetMessage(messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byID[messageID]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return msg, nil
}

// IncrementRateLimit 自增限流计数，返回窗口内的当前计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// 顺带清理过期条目
	if now.After(s.rateLimitsCleanup) {
		for k, entry := range s.rateLimits {
			if now.After(entry.ExpiresAt) {
				delete(s.rateLimits, k)
			}
		}
		s.rateLimitsCleanup = now.Add(5 * time.Minute)
	}

	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// Close 实现 Store 接口，内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 实现 Store 接口。
func (s *Store) Health() error {
	return nil
}

// pruneExpiredLocked 清理过期邮箱。
func (s *Store) pruneExpiredLocked() {
	now := time.Now()
	for id, mb := range s.mailboxes {
		if mb.Expired(now) {
			s.deleteMailboxLocked(id)
		}
	}
}
