package sql

import (
	"database/sql"
	"fmt"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// SaveMessage 保存邮件信息
func (s *Store) SaveMessage(message *domain.Message) error {
	query := fmt.Sprintf(`INSERT INTO messages (id, mailbox_id, from_address, to_address, subject, text_content, html_content, received_at, is_read)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8), s.placeholder(9))

	_, err := s.db.Exec(query,
		message.ID,
		message.MailboxID,
		message.From,
		message.To,
		message.Subject,
		message.Text,
		message.HTML,
		message.ReceivedAt,
		message.IsRead,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages 按接收时间倒序返回某个邮箱下的全部邮件
func (s *Store) ListMessages(mailboxID string) ([]domain.Message, error) {
	query := fmt.Sprintf(`SELECT id, mailbox_id, from_address, to_address, subject, text_content, html_content, received_at, is_read
		FROM messages WHERE mailbox_id = %s ORDER BY received_at DESC`,
		s.placeholder(1))

	rows, err := s.db.Query(query, mailboxID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.MailboxID,
			&msg.From,
			&msg.To,
			&msg.Subject,
			&msg.Text,
			&msg.HTML,
			&msg.ReceivedAt,
			&msg.IsRead,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetMessage 按 ID 获取单封邮件
func (s *Store) GetMessage(messageID string) (*domain.Message, error) {
	query := fmt.Sprintf(`SELECT id, mailbox_id, from_address, to_address, subject, text_content, html_content, received_at, is_read
		FROM messages WHERE id = %s`,
		s.placeholder(1))

	var msg domain.Message
	err := s.db.QueryRow(query, messageID).Scan(
		&msg.ID,
		&msg.MailboxID,
		&msg.From,
		&msg.To,
		&msg.Subject,
		&msg.Text,
		&msg.HTML,
		&msg.ReceivedAt,
		&msg.IsRead,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}
