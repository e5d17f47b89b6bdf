package service

import (
	"time"

	"github.com/google/uuid"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// MessageService 封装邮件存取逻辑。
type MessageService struct {
	repo storage.MessageRepository
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(repo storage.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// CreateMessageInput 定义创建邮件的输入。
type CreateMessageInput struct {
	MailboxID string
	From      string
	To        string
	Subject   string
	Text      string
	HTML      string
}

// Create 新建一封邮件并持久化。
//
// 接收时间由服务端生成，新邮件始终为未读状态。
func (s *MessageService) Create(input CreateMessageInput) (*domain.Message, error) {
	message := &domain.Message{
		ID:         uuid.NewString(),
		MailboxID:  input.MailboxID,
		From:       input.From,
		To:         input.To,
		Subject:    input.Subject,
		Text:       input.Text,
		HTML:       input.HTML,
		ReceivedAt: time.Now().UTC(),
		IsRead:     false,
	}

	if err := s.repo.SaveMessage(message); err != nil {
		return nil, err
	}

	return message, nil
}

// List 按接收时间倒序列出指定邮箱下的邮件。
func (s *MessageService) List(mailboxID string) ([]domain.Message, error) {
	return s.repo.ListMessages(mailboxID)
}

// Get 根据邮件 ID 获取单封邮件详情。
//
// 不校验所属邮箱是否仍然存在，邮箱过期后邮件仍可按 ID 读取。
func (s *MessageService) Get(messageID string) (*domain.Message, error) {
	return s.repo.GetMessage(messageID)
}
