package smtp

import (
	"strings"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/storage/memory"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices int
}

func (n *recordingNotifier) NotifyNewMail(mailboxID string, message *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices++
}

func newTestBackend(t *testing.T) (*Backend, *service.MailboxService, *service.MessageService, *recordingNotifier) {
	t.Helper()

	store := memory.NewStore()
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Mailbox: config.MailboxConfig{
			Domain:          "relay.mail",
			TTL:             time.Hour,
			LocalPartLength: 10,
		},
	}

	mailboxes := service.NewMailboxService(store, cfg)
	messages := service.NewMessageService(store)
	notifier := &recordingNotifier{}

	backend := NewBackend(mailboxes, messages, notifier, "relay.mail", nil, nil)
	return backend, mailboxes, messages, notifier
}

func TestSession_Rcpt(t *testing.T) {
	backend, mailboxes, _, _ := newTestBackend(t)

	mailbox, err := mailboxes.Create()
	require.NoError(t, err)

	t.Run("收件人存在时接受", func(t *testing.T) {
		s := &session{backend: backend}

		err := s.Rcpt("<"+mailbox.Address+">", nil)

		assert.NoError(t, err)
		require.Len(t, s.recipients, 1)
		assert.Equal(t, mailbox.ID, s.recipients[0].id)
	})

	t.Run("外部域名被拒绝", func(t *testing.T) {
		s := &session{backend: backend}

		err := s.Rcpt("someone@example.com", nil)

		require.Error(t, err)
		smtpErr, ok := err.(*gosmtp.SMTPError)
		require.True(t, ok)
		assert.Equal(t, 550, smtpErr.Code)
	})

	t.Run("邮箱不存在被拒绝", func(t *testing.T) {
		s := &session{backend: backend}

		err := s.Rcpt("nobody@relay.mail", nil)

		require.Error(t, err)
		smtpErr, ok := err.(*gosmtp.SMTPError)
		require.True(t, ok)
		assert.Equal(t, 550, smtpErr.Code)
	})

	t.Run("无效地址返回501", func(t *testing.T) {
		s := &session{backend: backend}

		err := s.Rcpt("not-an-address", nil)

		require.Error(t, err)
		smtpErr, ok := err.(*gosmtp.SMTPError)
		require.True(t, ok)
		assert.Equal(t, 501, smtpErr.Code)
	})
}

func TestSession_Data(t *testing.T) {
	backend, mailboxes, messages, notifier := newTestBackend(t)

	mailbox, err := mailboxes.Create()
	require.NoError(t, err)

	raw := strings.Join([]string{
		"From: sender@example.com",
		"To: " + mailbox.Address,
		"Subject: greetings",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"hello from smtp",
	}, "\r\n")

	s := &session{backend: backend}
	require.NoError(t, s.Mail("sender@example.com", nil))
	require.NoError(t, s.Rcpt(mailbox.Address, nil))
	require.NoError(t, s.Data(strings.NewReader(raw)))

	list, err := messages.List(mailbox.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "greetings", list[0].Subject)
	assert.Equal(t, "sender@example.com", list[0].From)
	assert.Contains(t, list[0].Text, "hello from smtp")
	assert.Equal(t, 1, notifier.notices)
}

func TestParseEmail(t *testing.T) {
	t.Run("纯文本邮件", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"To: b@relay.mail",
			"Subject: plain",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"body text",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))

		require.NoError(t, err)
		assert.Equal(t, "plain", parsed.Subject)
		assert.Contains(t, parsed.Text, "body text")
		assert.Empty(t, parsed.HTML)
	})

	t.Run("multipart邮件提取文本和HTML", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"To: b@relay.mail",
			"Subject: multi",
			`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
			"",
			"--BOUNDARY",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"plain part",
			"--BOUNDARY",
			"Content-Type: text/html; charset=utf-8",
			"",
			"<p>html part</p>",
			"--BOUNDARY--",
			"",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))

		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "plain part")
		assert.Contains(t, parsed.HTML, "html part")
	})
}

func TestConnectionLimiter(t *testing.T) {
	t.Run("超过并发上限拒绝", func(t *testing.T) {
		limiter := NewConnectionLimiter(2, 100)

		assert.True(t, limiter.Acquire())
		assert.True(t, limiter.Acquire())
		assert.False(t, limiter.Acquire())

		limiter.Release()
		assert.True(t, limiter.Acquire())
	})

	t.Run("释放不会使计数为负", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 100)

		limiter.Release()
		assert.Equal(t, 0, limiter.Current())
	})
}
