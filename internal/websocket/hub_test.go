package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/domain"
)

// newTestHub 启动一个带运行中 Hub 的测试服务器
func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	hub := NewHub([]string{"*"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", HandleWebSocket(hub))
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return hub, server
}

// dial 建立到测试服务器的 WebSocket 连接
func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// subscribe 发送订阅请求并等待确认
func subscribe(t *testing.T, conn *websocket.Conn, mailboxID string) {
	t.Helper()

	err := conn.WriteJSON(Message{Type: MessageTypeSubscribe, MailboxID: mailboxID})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, MessageTypeSubscribed, ack.Type)
	require.Equal(t, mailboxID, ack.MailboxID)
}

func TestHub_SubscribeAndNotify(t *testing.T) {
	hub, server := newTestHub(t)

	conn := dial(t, server)
	subscribe(t, conn, "mailbox-1")

	received := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	hub.NotifyNewMail("mailbox-1", &domain.Message{
		ID:         "msg-1",
		MailboxID:  "mailbox-1",
		From:       "sender@example.com",
		To:         "a@relay.mail",
		Subject:    "hello",
		Text:       "plain body",
		HTML:       "<p>plain body</p>",
		ReceivedAt: received,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, MessageTypeNewMail, msg.Type)
	assert.Equal(t, "mailbox-1", msg.MailboxID)

	var data NewMailData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "msg-1", data.ID)
	assert.Equal(t, "sender@example.com", data.From)
	assert.Equal(t, "hello", data.Subject)
	assert.Equal(t, "plain body", data.Text)
	assert.Equal(t, received.Format(time.RFC3339), data.ReceivedAt)

	// 推送载荷不携带 HTML 正文
	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &raw))
	assert.NotContains(t, raw, "html")
}

func TestHub_NotifyOnlyReachesSubscribers(t *testing.T) {
	hub, server := newTestHub(t)

	subscriber := dial(t, server)
	subscribe(t, subscriber, "mailbox-a")

	bystander := dial(t, server)
	subscribe(t, bystander, "mailbox-b")

	hub.NotifyNewMail("mailbox-a", &domain.Message{
		ID:         "msg-1",
		MailboxID:  "mailbox-a",
		From:       "sender@example.com",
		ReceivedAt: time.Now().UTC(),
	})

	// 订阅者收到通知
	subscriber.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, subscriber.ReadJSON(&msg))
	assert.Equal(t, MessageTypeNewMail, msg.Type)

	// 订阅了其他邮箱的客户端收不到
	bystander.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var other Message
	err := bystander.ReadJSON(&other)
	assert.Error(t, err)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, server := newTestHub(t)

	conn := dial(t, server)
	subscribe(t, conn, "mailbox-1")

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeUnsubscribe, MailboxID: "mailbox-1"}))

	// 等待取消订阅生效
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		_, subscribed := hub.mailboxes["mailbox-1"]
		hub.mu.RUnlock()
		if !subscribed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.NotifyNewMail("mailbox-1", &domain.Message{
		ID:         "msg-1",
		MailboxID:  "mailbox-1",
		ReceivedAt: time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg Message
	err := conn.ReadJSON(&msg)
	assert.Error(t, err)
}

func TestHub_SubscribeWithoutMailboxID(t *testing.T) {
	_, server := newTestHub(t)

	conn := dial(t, server)
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.NotEmpty(t, msg.Error)
}
