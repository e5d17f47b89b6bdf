package httptransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// ========== 响应转换 ==========

// mailboxResponse 邮箱创建响应
type mailboxResponse struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	ExpiresAt string `json:"expiresAt"`
}

// messageResponse 邮件列表项，列表场景下不回传所属邮箱ID
type messageResponse struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	ReceivedAt string `json:"receivedAt"`
	IsRead     bool   `json:"isRead"`
}

// messageDetailResponse 单封邮件详情
type messageDetailResponse struct {
	ID         string `json:"id"`
	MailboxID  string `json:"mailboxId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	ReceivedAt string `json:"receivedAt"`
	IsRead     bool   `json:"isRead"`
}

func toMailboxResponse(m *domain.Mailbox) mailboxResponse {
	return mailboxResponse{
		ID:        m.ID,
		Address:   m.Address,
		ExpiresAt: m.ExpiresAt.Format(time.RFC3339),
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		From:       m.From,
		To:         m.To,
		Subject:    m.Subject,
		Text:       m.Text,
		HTML:       m.HTML,
		ReceivedAt: m.ReceivedAt.Format(time.RFC3339),
		IsRead:     m.IsRead,
	}
}

func toMessageDetailResponse(m *domain.Message) messageDetailResponse {
	return messageDetailResponse{
		ID:         m.ID,
		MailboxID:  m.MailboxID,
		From:       m.From,
		To:         m.To,
		Subject:    m.Subject,
		Text:       m.Text,
		HTML:       m.HTML,
		ReceivedAt: m.ReceivedAt.Format(time.RFC3339),
		IsRead:     m.IsRead,
	}
}

// ========== Mailbox Handlers ==========

// createMailbox 创建一个随机地址的临时邮箱
func (h *Handler) createMailbox(c *gin.Context) {
	mailbox, err := h.mailboxes.Create()
	if err != nil {
		InternalError(c, MsgMailboxCreateFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMailboxCreated()
	}

	c.JSON(http.StatusOK, toMailboxResponse(mailbox))
}

// listMessages 列出邮箱内的邮件，按接收时间倒序
func (h *Handler) listMessages(c *gin.Context) {
	mailboxID := c.Param("id")

	messages, err := h.messages.List(mailboxID)
	if err != nil {
		InternalError(c, MsgMessageListFailed)
		return
	}

	// 无邮件时返回空数组而非 null
	result := make([]messageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, toMessageResponse(&messages[i]))
	}

	c.JSON(http.StatusOK, result)
}

// getMessage 按ID获取单封邮件
func (h *Handler) getMessage(c *gin.Context) {
	messageID := c.Param("id")

	message, err := h.messages.Get(messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, MsgMessageNotFound)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	c.JSON(http.StatusOK, toMessageDetailResponse(message))
}
