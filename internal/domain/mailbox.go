package domain

import (
	"time"
)

// Mailbox 表示一次性临时邮箱的业务实体。
//
// 地址在创建时随机生成，创建后不再变更；过期后由存储层自动清理。
type Mailbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address   string    `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	LocalPart string    `json:"localPart" gorm:"type:varchar(255)"`
	Domain    string    `json:"domain" gorm:"type:varchar(100);index"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index"`
	IsActive  bool      `json:"isActive" gorm:"default:true"`
}

// Expired 判断邮箱在指定时间是否已过期。
func (m *Mailbox) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Receivable 判断邮箱当前是否可以接收邮件（激活且未过期）。
func (m *Mailbox) Receivable(now time.Time) bool {
	return m.IsActive && !m.Expired(now)
}
