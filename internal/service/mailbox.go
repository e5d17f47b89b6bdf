package service

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// localPartAlphabet 随机本地部分的字符集，只含小写字母和数字
const localPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MailboxService 封装临时邮箱相关业务操作。
type MailboxService struct {
	repo   storage.MailboxRepository
	cfg    *config.Config
	mu     sync.Mutex
	random *rand.Rand
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(repo storage.MailboxRepository, cfg *config.Config) *MailboxService {
	return &MailboxService{
		repo:   repo,
		cfg:    cfg,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create 创建新的临时邮箱。
//
// 地址的本地部分随机生成，域名使用配置的统一域名，
// 过期时间 = 创建时间 + 配置的 TTL。
func (s *MailboxService) Create() (*domain.Mailbox, error) {
	localPart := s.generateLocalPart(s.cfg.Mailbox.LocalPartLength)
	mailDomain := s.cfg.Mailbox.Domain
	address := fmt.Sprintf("%s@%s", localPart, mailDomain)

	now := time.Now().UTC()

	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		LocalPart: localPart,
		Domain:    mailDomain,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Mailbox.TTL),
		IsActive:  true,
	}

	if err := s.repo.SaveMailbox(mailbox); err != nil {
		return nil, err
	}

	return mailbox, nil
}

// Get 根据 ID 获取邮箱，已过期的邮箱视为不存在。
func (s *MailboxService) Get(id string) (*domain.Mailbox, error) {
	return s.repo.GetMailbox(id)
}

// FindActiveByAddress 根据完整地址查找可接收邮件的邮箱。
//
// 地址匹配不区分大小写。只返回未过期且处于激活状态的邮箱，
// 找不到时返回 storage.ErrMailboxNotFound。
func (s *MailboxService) FindActiveByAddress(address string) (*domain.Mailbox, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, storage.ErrMailboxNotFound
	}
	return s.repo.GetActiveMailboxByAddress(address)
}

// CleanupExpired 删除全部已过期的邮箱，返回删除数量。
func (s *MailboxService) CleanupExpired() (int, error) {
	return s.repo.DeleteExpiredMailboxes()
}

// generateLocalPart 生成指定长度的随机本地部分。
func (s *MailboxService) generateLocalPart(length int) string {
	if length <= 0 {
		length = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, length)
	for i := range b {
		b[i] = localPartAlphabet[s.random.Intn(len(localPartAlphabet))]
	}
	return string(b)
}
