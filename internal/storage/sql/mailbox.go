package sql

import (
	"database/sql"
	"fmt"
	"time"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// SaveMailbox 保存邮箱信息
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	query := fmt.Sprintf(`INSERT INTO mailboxes (id, address, local_part, domain, created_at, expires_at, is_active)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7))

	_, err := s.db.Exec(query,
		mailbox.ID,
		mailbox.Address,
		mailbox.LocalPart,
		mailbox.Domain,
		mailbox.CreatedAt,
		mailbox.ExpiresAt,
		mailbox.IsActive,
	)
	if err != nil {
		return fmt.Errorf("save mailbox: %w", err)
	}
	return nil
}

// GetMailbox 根据 ID 获取邮箱（过期的视为不存在）
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	query := fmt.Sprintf(`SELECT id, address, local_part, domain, created_at, expires_at, is_active
		FROM mailboxes WHERE id = %s AND expires_at > %s`,
		s.placeholder(1), s.placeholder(2))

	return s.scanMailbox(s.db.QueryRow(query, id, time.Now().UTC()))
}

// GetActiveMailboxByAddress 根据完整地址获取激活且未过期的邮箱
func (s *Store) GetActiveMailboxByAddress(address string) (*domain.Mailbox, error) {
	query := fmt.Sprintf(`SELECT id, address, local_part, domain, created_at, expires_at, is_active
		FROM mailboxes WHERE address = %s AND is_active = %s AND expires_at > %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))

	return s.scanMailbox(s.db.QueryRow(query, address, true, time.Now().UTC()))
}

// DeleteExpiredMailboxes 删除所有过期的邮箱，返回删除数量。
//
// 邮件行不做级联删除，孤儿邮件仍可按 ID 查询。
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	query := fmt.Sprintf(`DELETE FROM mailboxes WHERE expires_at <= %s`, s.placeholder(1))

	result, err := s.db.Exec(query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired mailboxes: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) scanMailbox(row *sql.Row) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := row.Scan(
		&mailbox.ID,
		&mailbox.Address,
		&mailbox.LocalPart,
		&mailbox.Domain,
		&mailbox.CreatedAt,
		&mailbox.ExpiresAt,
		&mailbox.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan mailbox: %w", err)
	}
	return &mailbox, nil
}
