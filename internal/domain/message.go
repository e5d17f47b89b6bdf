package domain

import "time"

// Message 表示投递到临时邮箱的一封入站邮件。
//
// 邮件只通过入站通道（Webhook 或 SMTP）创建，创建后不再更新。
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxID  string    `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	From       string    `json:"from" gorm:"column:from_address;type:varchar(255)"`
	To         string    `json:"to" gorm:"column:to_address;type:varchar(255)"`
	Subject    string    `json:"subject" gorm:"type:varchar(500)"`
	Text       string    `json:"text" gorm:"column:text_content;type:text"`
	HTML       string    `json:"html" gorm:"column:html_content;type:text"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"index"`
	IsRead     bool      `json:"isRead" gorm:"default:false"`
}
