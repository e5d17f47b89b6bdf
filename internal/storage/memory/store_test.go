package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

func newMailbox(id, address string, expiresAt time.Time) *domain.Mailbox {
	return &domain.Mailbox{
		ID:        id,
		Address:   address,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
}

func newMessage(id, mailboxID string, receivedAt time.Time) *domain.Message {
	return &domain.Message{
		ID:         id,
		MailboxID:  mailboxID,
		From:       "sender@example.com",
		To:         "box@relay.mail",
		Subject:    "subject-" + id,
		ReceivedAt: receivedAt,
	}
}

func TestStore_Mailbox(t *testing.T) {
	t.Run("保存并读取邮箱", func(t *testing.T) {
		store := NewStore()
		mb := newMailbox("mb-1", "abc@relay.mail", time.Now().Add(time.Hour))
		require.NoError(t, store.SaveMailbox(mb))

		got, err := store.GetMailbox("mb-1")
		require.NoError(t, err)
		assert.Equal(t, "abc@relay.mail", got.Address)

		byAddr, err := store.GetActiveMailboxByAddress("abc@relay.mail")
		require.NoError(t, err)
		assert.Equal(t, "mb-1", byAddr.ID)
	})

	t.Run("不存在的邮箱返回错误", func(t *testing.T) {
		store := NewStore()
		_, err := store.GetMailbox("missing")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("过期邮箱读取时被惰性清除", func(t *testing.T) {
		store := NewStore()
		mb := newMailbox("mb-1", "abc@relay.mail", time.Now().Add(-time.Minute))
		require.NoError(t, store.SaveMailbox(mb))

		_, err := store.GetMailbox("mb-1")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

		_, err = store.GetActiveMailboxByAddress("abc@relay.mail")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("停用邮箱不能按地址命中", func(t *testing.T) {
		store := NewStore()
		mb := newMailbox("mb-1", "abc@relay.mail", time.Now().Add(time.Hour))
		mb.IsActive = false
		require.NoError(t, store.SaveMailbox(mb))

		_, err := store.GetActiveMailboxByAddress("abc@relay.mail")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestStore_DeleteExpiredMailboxes(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.SaveMailbox(newMailbox("live", "live@relay.mail", time.Now().Add(time.Hour))))
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("dead-%d", i)
		require.NoError(t, store.SaveMailbox(newMailbox(id, id+"@relay.mail", time.Now().Add(-time.Minute))))
	}

	count, err := store.DeleteExpiredMailboxes()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = store.GetMailbox("live")
	assert.NoError(t, err)
}

func TestStore_Messages(t *testing.T) {
	t.Run("列表按接收时间倒序", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.SaveMailbox(newMailbox("mb-1", "abc@relay.mail", time.Now().Add(time.Hour))))

		base := time.Now()
		for i := 0; i < 3; i++ {
			msg := newMessage(fmt.Sprintf("msg-%d", i), "mb-1", base.Add(time.Duration(i)*time.Second))
			require.NoError(t, store.SaveMessage(msg))
		}

		list, err := store.ListMessages("mb-1")
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, "msg-2", list[0].ID)
		assert.Equal(t, "msg-1", list[1].ID)
		assert.Equal(t, "msg-0", list[2].ID)
	})

	t.Run("无邮件时返回空切片", func(t *testing.T) {
		store := NewStore()
		list, err := store.ListMessages("unknown")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("邮箱不存在时保存失败", func(t *testing.T) {
		store := NewStore()
		err := store.SaveMessage(newMessage("msg-1", "missing", time.Now()))
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("邮箱过期后邮件仍可按ID读取", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.SaveMailbox(newMailbox("mb-1", "abc@relay.mail", time.Now().Add(50*time.Millisecond))))
		require.NoError(t, store.SaveMessage(newMessage("msg-1", "mb-1", time.Now())))

		time.Sleep(80 * time.Millisecond)

		_, err := store.DeleteExpiredMailboxes()
		require.NoError(t, err)

		// 按邮箱列表的入口已消失
		list, err := store.ListMessages("mb-1")
		require.NoError(t, err)
		assert.Empty(t, list)

		// 单封读取不受影响
		msg, err := store.GetMessage("msg-1")
		require.NoError(t, err)
		assert.Equal(t, "mb-1", msg.MailboxID)
	})
}

func TestStore_IncrementRateLimit(t *testing.T) {
	t.Run("窗口内计数递增", func(t *testing.T) {
		store := NewStore()
		for want := int64(1); want <= 3; want++ {
			count, err := store.IncrementRateLimit("ip:1.2.3.4", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})

	t.Run("窗口过期后计数重置", func(t *testing.T) {
		store := NewStore()
		_, err := store.IncrementRateLimit("ip:1.2.3.4", 30*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)

		count, err := store.IncrementRateLimit("ip:1.2.3.4", 30*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("不同键互不影响", func(t *testing.T) {
		store := NewStore()
		_, err := store.IncrementRateLimit("ip:1.1.1.1", time.Minute)
		require.NoError(t, err)

		count, err := store.IncrementRateLimit("ip:2.2.2.2", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
