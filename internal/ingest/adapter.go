package ingest

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/pool"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/storage"
)

// Status 表示一次入站投递的处理结果
type Status string

const (
	// StatusOK 邮件已入库并触发通知
	StatusOK Status = "ok"
	// StatusIgnoredNoToEmail 载荷缺少收件地址，投递被忽略
	StatusIgnoredNoToEmail Status = "ignored_no_to_email"
	// StatusIgnoredNoMailbox 收件地址没有对应的有效邮箱，投递被忽略
	StatusIgnoredNoMailbox Status = "ignored_no_mailbox"
)

// sentinelFrom 发件地址缺失时的占位地址
const sentinelFrom = "unknown@unknown.invalid"

// 各逻辑字段的提供商字段名候选列表，按优先级排列。
// 不同的入站邮件服务商（Mailgun、SendGrid、自建转发等）对
// 同一语义字段使用不同的命名，这里统一探测。
var (
	toAliases      = []string{"to", "to_email", "recipient", "toAddress", "to_address"}
	fromAliases    = []string{"from", "from_email", "sender", "fromAddress", "from_address"}
	subjectAliases = []string{"subject", "Subject", "title"}
	textAliases    = []string{"text", "text_body", "body-plain", "plain", "body"}
	htmlAliases    = []string{"html", "html_body", "body-html"}
)

// angleAddrPattern 匹配 "Display Name <address>" 形式中的地址部分
var angleAddrPattern = regexp.MustCompile(`<([^<>]+)>`)

// Result 描述一次入站投递的处理结果
type Result struct {
	Status  Status
	Message *domain.Message // 仅 StatusOK 时非空
}

// Notifier 接收新邮件通知并负责推送给订阅者
type Notifier interface {
	NotifyNewMail(mailboxID string, message *domain.Message)
}

// Adapter 入站邮件适配器
//
// 将任意提供商的 Webhook 载荷规整为统一的邮件记录：
// 探测字段别名、解析地址、匹配邮箱、入库并异步触发通知。
type Adapter struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	notifier  Notifier
	workers   *pool.WorkerPool
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewAdapter 创建入站邮件适配器
func NewAdapter(
	mailboxes *service.MailboxService,
	messages *service.MessageService,
	notifier Notifier,
	workers *pool.WorkerPool,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		mailboxes: mailboxes,
		messages:  messages,
		notifier:  notifier,
		workers:   workers,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process 处理一次入站投递
//
// 两种 ignored 结果都不是错误：上游服务商收到成功应答即不再
// 重试。只有入库失败才返回 error。
func (a *Adapter) Process(payload map[string]any) (Result, error) {
	to := normalizeAddress(firstNonEmpty(payload, toAliases...))
	if to == "" {
		a.logger.Debug("入站投递缺少收件地址，忽略")
		a.recordIgnored(string(StatusIgnoredNoToEmail))
		return Result{Status: StatusIgnoredNoToEmail}, nil
	}

	mailbox, err := a.mailboxes.FindActiveByAddress(to)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			a.logger.Debug("收件地址无对应邮箱，忽略", zap.String("to", to))
			a.recordIgnored(string(StatusIgnoredNoMailbox))
			return Result{Status: StatusIgnoredNoMailbox}, nil
		}
		return Result{}, err
	}

	from := normalizeAddress(firstNonEmpty(payload, fromAliases...))
	if from == "" {
		from = sentinelFrom
	}

	message, err := a.messages.Create(service.CreateMessageInput{
		MailboxID: mailbox.ID,
		From:      from,
		To:        to,
		Subject:   firstNonEmpty(payload, subjectAliases...),
		Text:      firstNonEmpty(payload, textAliases...),
		HTML:      firstNonEmpty(payload, htmlAliases...),
	})
	if err != nil {
		a.logger.Error("入站邮件入库失败",
			zap.String("mailboxId", mailbox.ID),
			zap.Error(err))
		return Result{}, err
	}

	if a.metrics != nil {
		a.metrics.RecordMessageIngested()
	}

	a.dispatch(mailbox.ID, message)

	a.logger.Info("入站邮件已接收",
		zap.String("mailboxId", mailbox.ID),
		zap.String("messageId", message.ID),
		zap.String("from", from))

	return Result{Status: StatusOK, Message: message}, nil
}

// dispatch 异步推送新邮件通知
//
// 通知是尽力而为的：队列满时直接丢弃，订阅者为零和推送失败
// 对调用方不可区分。
func (a *Adapter) dispatch(mailboxID string, message *domain.Message) {
	if a.notifier == nil {
		return
	}

	task := func() {
		a.notifier.NotifyNewMail(mailboxID, message)
	}

	if a.workers != nil {
		if !a.workers.TrySubmit(task) {
			a.logger.Warn("通知队列已满，丢弃新邮件通知",
				zap.String("mailboxId", mailboxID))
		}
		return
	}

	go task()
}

func (a *Adapter) recordIgnored(reason string) {
	if a.metrics != nil {
		a.metrics.RecordIngestIgnored(reason)
	}
}

// firstNonEmpty 按顺序探测载荷中的候选字段，返回第一个非空字符串值。
// 全部缺失或为空时返回空字符串。
func firstNonEmpty(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}
	return ""
}

// normalizeAddress 从 "Display Name <address>" 形式中提取地址。
// 没有尖括号形式时返回去除首尾空白后的原值。
func normalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if match := angleAddrPattern.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}
	return raw
}
