package smtp

import (
	"fmt"
	"io"
	"strings"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/service"
)

// Notifier 接收新邮件通知并负责推送给订阅者
type Notifier interface {
	NotifyNewMail(mailboxID string, message *domain.Message)
}

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只接收邮件的 SMTP 服务器：
// - 只接受发往配置域名下已存在邮箱的邮件
// - 收件人不存在或域名不匹配时返回 550 拒绝
// - 不支持对外发送，不会成为开放中继
type Backend struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	notifier  Notifier
	domain    string
	limiter   *ConnectionLimiter
	logger    *zap.Logger
}

// NewBackend 创建 SMTP Backend。
func NewBackend(
	mailboxes *service.MailboxService,
	messages *service.MessageService,
	notifier Notifier,
	mailDomain string,
	limiter *ConnectionLimiter,
	logger *zap.Logger,
) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		mailboxes: mailboxes,
		messages:  messages,
		notifier:  notifier,
		domain:    strings.ToLower(mailDomain),
		limiter:   limiter,
		logger:    logger,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if b.limiter != nil && !b.limiter.Acquire() {
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many connections, try again later",
		}
	}

	return &session{
		backend: b,
	}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []recipient
}

type recipient struct {
	address string
	id      string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 防止邮件中继的核心：只接受发往配置域名下已存在邮箱的
// 邮件，其余一律拒绝。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if parts[1] != s.backend.domain {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - domain not managed by this server",
		}
	}

	mailbox, err := s.backend.mailboxes.FindActiveByAddress(addr)
	if err != nil {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "recipient mailbox not found",
		}
	}

	s.recipients = append(s.recipients, recipient{
		address: addr,
		id:      mailbox.ID,
	})
	return nil
}

// Data 处理邮件内容。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, 10<<20)) // 10MB
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(rawBytes)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	// 为每个收件人创建邮件
	for _, rcpt := range s.recipients {
		message, err := s.backend.messages.Create(service.CreateMessageInput{
			MailboxID: rcpt.id,
			From:      s.fromAddress,
			To:        rcpt.address,
			Subject:   parsed.Subject,
			Text:      parsed.Text,
			HTML:      parsed.HTML,
		})
		if err != nil {
			return err
		}

		s.backend.logger.Info("smtp message received",
			zap.String("mailboxId", rcpt.id),
			zap.String("messageId", message.ID),
			zap.String("from", s.fromAddress))

		if s.backend.notifier != nil {
			s.backend.notifier.NotifyNewMail(rcpt.id, message)
		}
	}

	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	if s.backend.limiter != nil {
		s.backend.limiter.Release()
	}
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
