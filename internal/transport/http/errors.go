package httptransport

// 统一的错误提示文案，避免在各个 handler 中散落字符串字面量。
const (
	MsgInvalidRequest       = "无效的请求参数"
	MsgMailboxCreateFailed  = "创建邮箱失败"
	MsgMailboxNotFound      = "邮箱不存在"
	MsgMessageNotFound      = "邮件不存在"
	MsgMessageListFailed    = "获取邮件列表失败"
	MsgMessagePersistFailed = "邮件保存失败"
	MsgInternalError        = "服务内部错误"
)
