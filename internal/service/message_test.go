package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/storage/memory"
)

func TestMessageService_Create(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	mailboxes := NewMailboxService(store, newTestConfig())
	messages := NewMessageService(store)

	mailbox, err := mailboxes.Create()
	require.NoError(t, err)

	t.Run("创建邮件成功", func(t *testing.T) {
		message, err := messages.Create(CreateMessageInput{
			MailboxID: mailbox.ID,
			From:      "sender@example.com",
			To:        mailbox.Address,
			Subject:   "hello",
			Text:      "plain body",
			HTML:      "<p>plain body</p>",
		})

		require.NoError(t, err)
		require.NotNil(t, message)
		assert.NotEmpty(t, message.ID)
		assert.Equal(t, mailbox.ID, message.MailboxID)
		assert.Equal(t, "sender@example.com", message.From)
		assert.False(t, message.IsRead)
		assert.False(t, message.ReceivedAt.IsZero())
	})
}

func TestMessageService_ListAndGet(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	mailboxes := NewMailboxService(store, newTestConfig())
	messages := NewMessageService(store)

	mailbox, err := mailboxes.Create()
	require.NoError(t, err)

	first, err := messages.Create(CreateMessageInput{
		MailboxID: mailbox.ID,
		From:      "a@example.com",
		To:        mailbox.Address,
		Subject:   "first",
	})
	require.NoError(t, err)

	_, err = messages.Create(CreateMessageInput{
		MailboxID: mailbox.ID,
		From:      "b@example.com",
		To:        mailbox.Address,
		Subject:   "second",
	})
	require.NoError(t, err)

	t.Run("列出邮件按接收时间倒序", func(t *testing.T) {
		list, err := messages.List(mailbox.ID)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.False(t, list[0].ReceivedAt.Before(list[1].ReceivedAt))
	})

	t.Run("空邮箱返回空列表", func(t *testing.T) {
		empty, err := mailboxes.Create()
		require.NoError(t, err)

		list, err := messages.List(empty.ID)

		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("根据ID获取邮件成功", func(t *testing.T) {
		message, err := messages.Get(first.ID)

		require.NoError(t, err)
		assert.Equal(t, "first", message.Subject)
	})

	t.Run("获取不存在的邮件失败", func(t *testing.T) {
		message, err := messages.Get("nonexistent")

		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
		assert.Nil(t, message)
	})
}
