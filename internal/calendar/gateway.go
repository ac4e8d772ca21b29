// Package calendar adapts the external calendar of record. The calendar is
// the source of truth for appointment existence and timing; local state is
// only ever a cache of it.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an event does not exist upstream (or has been
// permanently deleted). Callers decide whether that is an error at all: for
// deletions it is success.
var ErrNotFound = errors.New("calendar: event not found")

// StatusCancelled is the upstream status of a cancelled event. An event that
// is absent or carries this status is stale from the cache's point of view.
const StatusCancelled = "cancelled"

// Event is a calendar-of-record event as this system sees it.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	// AllDay marks date-only events. Start/End then hold day boundaries.
	AllDay bool
	// Status is the upstream lifecycle status ("confirmed", "cancelled", ...).
	Status string
	// Transparent is true when the event is marked free rather than busy.
	Transparent bool
}

// Cancelled reports whether the event has been cancelled upstream.
func (e *Event) Cancelled() bool {
	return e.Status == StatusCancelled
}

// Draft is the payload for creating a new event.
type Draft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Gateway is the thin adapter to the calendar of record. It may disagree with
// the local cache at any time; callers must verify before mutating.
type Gateway interface {
	// ListEvents returns all events overlapping [from, to), ordered by
	// start time.
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)

	// CreateEvent inserts a new event and returns it with its assigned ID.
	CreateEvent(ctx context.Context, draft Draft) (*Event, error)

	// GetEvent fetches one event by ID. Returns (nil, nil) when the event
	// does not exist upstream.
	GetEvent(ctx context.Context, id string) (*Event, error)

	// PatchEventTime moves an event to a new time window, keeping all other
	// fields. Returns ErrNotFound when the event is gone upstream.
	PatchEventTime(ctx context.Context, id string, start, end time.Time) (*Event, error)

	// DeleteEvent removes an event. An event that is already gone counts as
	// success: the desired end state holds either way.
	DeleteEvent(ctx context.Context, id string) error
}
