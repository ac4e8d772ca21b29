package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/phone"
)

// IdentityStore maps normalized phone numbers to display names.
type IdentityStore struct {
	db *DB
}

// NewIdentityStore creates an identity store using the given database.
func NewIdentityStore(db *DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// Upsert inserts an identity or, on conflict by phone, overwrites the name.
// The phone is normalized before any store operation.
func (s *IdentityStore) Upsert(rawPhone, name string) error {
	p := phone.Normalize(rawPhone)
	if p == "" {
		return fmt.Errorf("upsert identity: empty phone")
	}

	_, err := s.db.sql.Exec(`
		INSERT INTO identities (phone, name)
		VALUES (?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			name = excluded.name,
			updated_at = datetime('now')
	`, p, name)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", p, err)
	}
	return nil
}

// Get returns the identity for a normalized phone, or nil when unknown.
func (s *IdentityStore) Get(rawPhone string) (*domain.Identity, error) {
	p := phone.Normalize(rawPhone)

	var id domain.Identity
	var lastContact sql.NullString
	var createdAt, updatedAt string
	err := s.db.sql.QueryRow(`
		SELECT phone, name, last_human_contact_at, created_at, updated_at
		FROM identities WHERE phone = ?
	`, p).Scan(&id.Phone, &id.Name, &lastContact, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %s: %w", p, err)
	}

	id.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	id.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	if lastContact.Valid {
		if t, err := time.Parse(time.RFC3339, lastContact.String); err == nil {
			id.LastHumanContactAt = &t
		}
	}
	return &id, nil
}

// TouchHumanContact records that a human was pulled into the conversation.
func (s *IdentityStore) TouchHumanContact(rawPhone string, at time.Time) error {
	p := phone.Normalize(rawPhone)
	_, err := s.db.sql.Exec(`
		UPDATE identities SET last_human_contact_at = ?, updated_at = datetime('now')
		WHERE phone = ?
	`, at.UTC().Format(time.RFC3339), p)
	if err != nil {
		return fmt.Errorf("touch human contact %s: %w", p, err)
	}
	return nil
}
