package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/monitoring"
)

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 如果允许所有来源
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}

			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeNewMail     MessageType = "new_mail"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	MailboxID string          `json:"mailboxId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID         string
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	mailboxIDs map[string]bool // 订阅的邮箱ID
	mu         sync.RWMutex
	log        *zap.Logger
}

// Hub 管理所有WebSocket连接
//
// 订阅不做归属校验：任何拿到邮箱ID的连接都可以订阅该邮箱的
// 新邮件通知，与邮箱的创建者无关。
type Hub struct {
	clients        map[string]*Client            // clientID -> Client
	mailboxes      map[string]map[string]*Client // mailboxID -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *BroadcastMessage
	mu             sync.RWMutex
	log            *zap.Logger
	metrics        *monitoring.Metrics
	allowedOrigins []string
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	MailboxID string
	Message   *Message
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，用于 WebSocket 连接验证
//   - metrics: 监控指标，可为 nil
//   - log: 日志器，可为 nil
func NewHub(allowedOrigins []string, metrics *monitoring.Metrics, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		mailboxes:      make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, 256),
		log:            log,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// Run 启动Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			h.updateClientGauge(count)
			h.log.Info("client registered", zap.String("id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				// 从所有邮箱订阅中移除
				for mailboxID := range client.mailboxIDs {
					if clients, exists := h.mailboxes[mailboxID]; exists {
						delete(clients, client.ID)
						if len(clients) == 0 {
							delete(h.mailboxes, mailboxID)
						}
					}
				}
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Info("client unregistered", zap.String("id", client.ID))
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.updateClientGauge(count)

		case msg := <-h.broadcast:
			h.broadcastToMailbox(msg.MailboxID, msg.Message)

		case <-ticker.C:
			// 定期ping所有客户端
			h.pingAllClients()
		}
	}
}

// NewMailData 新邮件通知数据
//
// 推送只携带文本正文，HTML 正文需要客户端按邮件ID另行拉取。
type NewMailData struct {
	ID         string `json:"id"`
	MailboxID  string `json:"mailboxId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	ReceivedAt string `json:"receivedAt"`
}

// NotifyNewMail 向订阅了指定邮箱的客户端推送新邮件通知
func (h *Hub) NotifyNewMail(mailboxID string, message *domain.Message) {
	newMailData := NewMailData{
		ID:         message.ID,
		MailboxID:  mailboxID,
		From:       message.From,
		To:         message.To,
		Subject:    message.Subject,
		Text:       message.Text,
		ReceivedAt: message.ReceivedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(newMailData)
	if err != nil {
		h.log.Error("failed to marshal new mail data", zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeNewMail,
		MailboxID: mailboxID,
		Data:      data,
		Timestamp: time.Now(),
	}

	h.log.Info("broadcasting new mail notification",
		zap.String("mailboxID", mailboxID),
		zap.String("from", message.From),
		zap.String("subject", message.Subject))

	h.broadcast <- &BroadcastMessage{
		MailboxID: mailboxID,
		Message:   msg,
	}
}

// broadcastToMailbox 向订阅特定邮箱的客户端广播消息
func (h *Hub) broadcastToMailbox(mailboxID string, msg *Message) {
	h.mu.RLock()
	clients := h.mailboxes[mailboxID]
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// 客户端阻塞，跳过
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}

	if h.metrics != nil {
		h.metrics.RecordNotificationBroadcast()
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	msg := &Message{
		Type:      MessageTypePing,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// 跳过阻塞的客户端
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.mailboxes = make(map[string]map[string]*Client)
	h.updateClientGauge(0)
}

func (h *Hub) updateClientGauge(count int) {
	if h.metrics != nil {
		h.metrics.SetWebSocketClients(count)
	}
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:         uuid.NewString(),
			conn:       conn,
			send:       make(chan []byte, 256),
			hub:        hub,
			mailboxIDs: make(map[string]bool),
			log:        hub.log,
		}

		// 注册客户端
		hub.register <- client

		// 启动读写协程
		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		// 处理消息
		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribeMailbox(msg.MailboxID)
	case MessageTypeUnsubscribe:
		c.unsubscribeMailbox(msg.MailboxID)
	case MessageTypePong:
		// 客户端响应pong，更新活动时间
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	default:
		c.log.Warn("unknown message type", zap.String("type", string(msg.Type)))
	}
}

// subscribeMailbox 订阅邮箱的新邮件通知
func (c *Client) subscribeMailbox(mailboxID string) {
	if mailboxID == "" {
		c.sendError("mailbox ID is required")
		return
	}

	c.mu.Lock()
	c.mailboxIDs[mailboxID] = true
	c.mu.Unlock()

	c.hub.mu.Lock()
	if c.hub.mailboxes[mailboxID] == nil {
		c.hub.mailboxes[mailboxID] = make(map[string]*Client)
	}
	c.hub.mailboxes[mailboxID][c.ID] = c
	c.hub.mu.Unlock()

	c.log.Info("subscribed to mailbox",
		zap.String("clientID", c.ID),
		zap.String("mailboxID", mailboxID))

	// 发送订阅成功确认
	c.sendMessage(&Message{
		Type:      MessageTypeSubscribed,
		MailboxID: mailboxID,
		Timestamp: time.Now(),
	})
}

// unsubscribeMailbox 取消订阅邮箱
func (c *Client) unsubscribeMailbox(mailboxID string) {
	c.mu.Lock()
	delete(c.mailboxIDs, mailboxID)
	c.mu.Unlock()

	c.hub.mu.Lock()
	if clients, exists := c.hub.mailboxes[mailboxID]; exists {
		delete(clients, c.ID)
		if len(clients) == 0 {
			delete(c.hub.mailboxes, mailboxID)
		}
	}
	c.hub.mu.Unlock()

	c.log.Info("unsubscribed from mailbox",
		zap.String("clientID", c.ID),
		zap.String("mailboxID", mailboxID))
}

// sendError 发送错误消息给客户端
func (c *Client) sendError(errMsg string) {
	msg := &Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
	c.sendMessage(msg)
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}
