// Package domain holds the core types shared across the scheduling engine.
package domain

import "time"

// Identity is a known contact, keyed by normalized phone number.
// Rows are created on first contact and refreshed on every booking;
// they are never deleted.
type Identity struct {
	Phone              string     `json:"phone"`
	Name               string     `json:"name"`
	LastHumanContactAt *time.Time `json:"lastHumanContactAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Booking is a locally cached reference to a calendar event. The calendar of
// record always wins on conflict: a row whose event no longer exists upstream
// is stale and must be purged before being acted on.
type Booking struct {
	EventID     string    `json:"eventId"`
	OwnerPhone  string    `json:"ownerPhone"`
	StartTime   time.Time `json:"startTime"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message roles in a conversation transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
