package store

import (
	"fmt"
	"time"

	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/phone"
)

// MessageStore persists the rolling conversation transcript per phone.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a message store using the given database.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append records one transcript turn.
func (s *MessageStore) Append(rawPhone, role, content string) error {
	p := phone.Normalize(rawPhone)
	_, err := s.db.sql.Exec(`
		INSERT INTO messages (phone, role, content) VALUES (?, ?, ?)
	`, p, role, content)
	if err != nil {
		return fmt.Errorf("append message for %s: %w", p, err)
	}
	return nil
}

// History returns the most recent limit messages for a phone in
// chronological order.
func (s *MessageStore) History(rawPhone string, limit int) ([]domain.Message, error) {
	p := phone.Normalize(rawPhone)

	rows, err := s.db.sql.Query(`
		SELECT role, content, created_at
		FROM messages WHERE phone = ?
		ORDER BY id DESC LIMIT ?
	`, p, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", p, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt string
		if err := rows.Scan(&m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("loading history for %s: %w", p, err)
		}
		m.Timestamp, _ = time.Parse(time.DateTime, createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returned newest first; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
