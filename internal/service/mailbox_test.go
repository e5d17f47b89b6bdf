package service

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/storage/memory"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			Domain:          "relay.mail",
			TTL:             time.Hour,
			LocalPartLength: 10,
		},
	}
}

func TestMailboxService_Create(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	service := NewMailboxService(store, newTestConfig())

	t.Run("创建随机邮箱成功", func(t *testing.T) {
		mailbox, err := service.Create()

		require.NoError(t, err)
		require.NotNil(t, mailbox)
		assert.NotEmpty(t, mailbox.ID)
		assert.Equal(t, "relay.mail", mailbox.Domain)
		assert.Equal(t, fmt.Sprintf("%s@%s", mailbox.LocalPart, mailbox.Domain), mailbox.Address)
		assert.True(t, mailbox.IsActive)
	})

	t.Run("本地部分只包含小写字母和数字", func(t *testing.T) {
		mailbox, err := service.Create()

		require.NoError(t, err)
		assert.Len(t, mailbox.LocalPart, 10)
		assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]+$`), mailbox.LocalPart)
	})

	t.Run("过期时间等于创建时间加TTL", func(t *testing.T) {
		mailbox, err := service.Create()

		require.NoError(t, err)
		assert.Equal(t, mailbox.CreatedAt.Add(time.Hour), mailbox.ExpiresAt)
	})

	t.Run("创建多个邮箱地址互不相同", func(t *testing.T) {
		mailbox1, err1 := service.Create()
		mailbox2, err2 := service.Create()

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.NotEqual(t, mailbox1.Address, mailbox2.Address)
		assert.NotEqual(t, mailbox1.ID, mailbox2.ID)
	})
}

func TestMailboxService_FindActiveByAddress(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	service := NewMailboxService(store, newTestConfig())

	created, err := service.Create()
	require.NoError(t, err)

	t.Run("根据地址查找邮箱成功", func(t *testing.T) {
		mailbox, err := service.FindActiveByAddress(created.Address)

		require.NoError(t, err)
		assert.Equal(t, created.ID, mailbox.ID)
	})

	t.Run("地址匹配不区分大小写", func(t *testing.T) {
		mailbox, err := service.FindActiveByAddress("  " + created.LocalPart + "@RELAY.MAIL ")

		require.NoError(t, err)
		assert.Equal(t, created.ID, mailbox.ID)
	})

	t.Run("查找不存在的地址失败", func(t *testing.T) {
		mailbox, err := service.FindActiveByAddress("nobody@relay.mail")

		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
		assert.Nil(t, mailbox)
	})

	t.Run("空地址失败", func(t *testing.T) {
		mailbox, err := service.FindActiveByAddress("   ")

		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
		assert.Nil(t, mailbox)
	})
}

func TestMailboxService_Get(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	service := NewMailboxService(store, newTestConfig())

	created, err := service.Create()
	require.NoError(t, err)

	t.Run("根据ID获取邮箱成功", func(t *testing.T) {
		mailbox, err := service.Get(created.ID)

		require.NoError(t, err)
		assert.Equal(t, created.Address, mailbox.Address)
	})

	t.Run("获取不存在的邮箱失败", func(t *testing.T) {
		mailbox, err := service.Get("nonexistent")

		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
		assert.Nil(t, mailbox)
	})
}
