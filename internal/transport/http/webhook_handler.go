package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ========== Webhook Handlers ==========

// inboundEmail 接收上游邮件服务商推送的入站邮件
//
// 无论载荷能否匹配到邮箱都返回 200，避免服务商对可忽略的载荷反复重试；
// 仅在持久化失败时返回 500 触发重试。
func (h *Handler) inboundEmail(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.inbound.Process(payload)
	if err != nil {
		InternalError(c, MsgMessagePersistFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(result.Status)})
}
