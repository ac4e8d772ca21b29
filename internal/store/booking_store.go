package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/phone"
)

// BookingStore caches calendar-of-record events as local booking rows keyed
// by external event ID. It is never authoritative: the calendar wins on
// conflict, and rows pointing at deleted events are purged by reconciliation.
type BookingStore struct {
	db  *DB
	loc *time.Location
}

// NewBookingStore creates a booking store. Times are returned in loc.
func NewBookingStore(db *DB, loc *time.Location) *BookingStore {
	return &BookingStore{db: db, loc: loc}
}

// Upsert inserts or replaces a booking row. Idempotent on event ID.
func (s *BookingStore) Upsert(b domain.Booking) error {
	if b.EventID == "" {
		return fmt.Errorf("upsert booking: empty event id")
	}

	_, err := s.db.sql.Exec(`
		INSERT INTO bookings (event_id, owner_phone, start_time, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			owner_phone = excluded.owner_phone,
			start_time  = excluded.start_time,
			description = excluded.description
	`, b.EventID, phone.Normalize(b.OwnerPhone), b.StartTime.UTC().Format(time.RFC3339), b.Description)
	if err != nil {
		return fmt.Errorf("upsert booking %s: %w", b.EventID, err)
	}
	return nil
}

// Delete removes a booking row. Deleting a missing row is not an error.
func (s *BookingStore) Delete(eventID string) error {
	_, err := s.db.sql.Exec(`DELETE FROM bookings WHERE event_id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", eventID, err)
	}
	return nil
}

// GetByEventID returns the booking for an event ID, or nil when unknown.
func (s *BookingStore) GetByEventID(eventID string) (*domain.Booking, error) {
	row := s.db.sql.QueryRow(`
		SELECT event_id, owner_phone, start_time, description, created_at
		FROM bookings WHERE event_id = ?
	`, eventID)
	b, err := s.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", eventID, err)
	}
	return b, nil
}

// UpdateStartTime moves a booking to a new start time.
func (s *BookingStore) UpdateStartTime(eventID string, start time.Time) error {
	_, err := s.db.sql.Exec(`
		UPDATE bookings SET start_time = ? WHERE event_id = ?
	`, start.UTC().Format(time.RFC3339), eventID)
	if err != nil {
		return fmt.Errorf("update booking time %s: %w", eventID, err)
	}
	return nil
}

// FindFlexible returns the earliest future booking whose owner phone matches
// the (possibly partial) input by mutual suffix containment with at least
// four digits on both sides. This tolerates country-code prefix differences
// between how a user types their number and how the calendar recorded it.
// Returns nil when nothing matches.
func (s *BookingStore) FindFlexible(phonePartial string, now time.Time) (*domain.Booking, error) {
	needle := phone.Normalize(phonePartial)
	if needle == "" {
		return nil, nil
	}

	rows, err := s.db.sql.Query(`
		SELECT event_id, owner_phone, start_time, description, created_at
		FROM bookings
		WHERE start_time > ?
		ORDER BY start_time ASC
	`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("find booking by phone: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("find booking by phone: %w", err)
		}
		if phone.SuffixMatch(b.OwnerPhone, needle, phone.MinLocalDigits) {
			return b, nil
		}
	}
	return nil, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *BookingStore) scan(r rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var startTime, createdAt string
	if err := r.Scan(&b.EventID, &b.OwnerPhone, &startTime, &b.Description, &createdAt); err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return nil, fmt.Errorf("parsing start_time %q: %w", startTime, err)
	}
	b.StartTime = start.In(s.loc)
	b.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &b, nil
}
