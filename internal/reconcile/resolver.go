// Package reconcile keeps the local booking cache honest against a calendar
// of record that can change without notice.
//
// Every mutating request runs an explicit state machine:
//
//	ResolveTarget → VerifyUpstream → {stale → Relocate, fresh → Apply} → Done
//
// The cache is never trusted before a mutation; the calendar is re-checked
// first and the cache is healed when they disagree.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/phone"
	"github.com/dpereira/agendai/internal/store"
	"github.com/dpereira/agendai/internal/timegrid"
)

// lookAheadDays is how far into the future the calendar is searched when a
// booking must be located by phone instead of event ID.
const lookAheadDays = 60

var (
	// ErrNoBooking means no booking could be resolved from the request at
	// all: no plausible ID, no local row, no calendar match.
	ErrNoBooking = errors.New("reconcile: no booking found")

	// ErrNoActiveBooking means the referenced booking was stale and no
	// active replacement exists upstream.
	ErrNoActiveBooking = errors.New("reconcile: no active booking upstream")
)

// TooSoonError rejects a reschedule whose target time is before the minimum
// schedulable date.
type TooSoonError struct {
	Minimum time.Time
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("reconcile: new time is before the scheduling floor %s", e.Minimum.Format("2006-01-02"))
}

// Resolver resolves "the user's appointment" from partial information and
// verifies it upstream before acting on it.
type Resolver struct {
	cal      calendar.Gateway
	bookings *store.BookingStore
	grid     timegrid.Grid
	log      *logging.Logger
	now      func() time.Time
}

// NewResolver creates a resolver.
func NewResolver(cal calendar.Gateway, bookings *store.BookingStore, grid timegrid.Grid, log *logging.Logger) *Resolver {
	return &Resolver{
		cal:      cal,
		bookings: bookings,
		grid:     grid,
		log:      log.Sub("reconcile"),
		now:      time.Now,
	}
}

// WithClock overrides the resolver's clock. Test helper.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Target is a booking reference that has been resolved and verified against
// the calendar of record.
type Target struct {
	EventID string
	Event   *calendar.Event
}

type resolveState int

const (
	stateResolve resolveState = iota
	stateVerify
	stateRelocate
	stateDone
)

// Resolve runs ResolveTarget → VerifyUpstream → Relocate and returns a
// verified, active target. candidateID may be empty, fabricated, or stale;
// none of those is fatal as long as an active booking for the phone exists
// somewhere.
func (r *Resolver) Resolve(ctx context.Context, rawPhone, candidateID string) (*Target, error) {
	p := phone.Normalize(rawPhone)
	eventID := candidateID
	var target *Target

	for st := stateResolve; st != stateDone; {
		switch st {
		case stateResolve:
			id, err := r.resolveTarget(ctx, p, eventID)
			if err != nil {
				return nil, err
			}
			eventID = id
			st = stateVerify

		case stateVerify:
			ev, err := r.cal.GetEvent(ctx, eventID)
			if err != nil {
				return nil, fmt.Errorf("verifying event %s: %w", eventID, err)
			}
			if ev == nil || ev.Cancelled() {
				st = stateRelocate
				continue
			}
			target = &Target{EventID: eventID, Event: ev}
			st = stateDone

		case stateRelocate:
			ev, err := r.relocate(ctx, p, eventID)
			if err != nil {
				return nil, err
			}
			target = &Target{EventID: ev.ID, Event: ev}
			st = stateDone
		}
	}

	return target, nil
}

// resolveTarget picks the event ID to operate on. A caller-supplied ID is
// only trusted when it is syntactically plausible AND known locally;
// otherwise resolution falls back to the local flexible phone match, then to
// a direct calendar search.
func (r *Resolver) resolveTarget(ctx context.Context, p, candidateID string) (string, error) {
	if candidateID != "" && !PlausibleEventID(candidateID) {
		r.log.Warn().Str("eventId", candidateID).Msg("implausible event id, ignoring")
		candidateID = ""
	}

	if candidateID != "" {
		known, err := r.bookings.GetByEventID(candidateID)
		if err != nil {
			return "", err
		}
		if known == nil {
			// An id we never issued is treated as fabricated.
			r.log.Warn().Str("eventId", candidateID).Msg("event id unknown locally, ignoring")
			candidateID = ""
		}
	}

	if candidateID != "" {
		return candidateID, nil
	}

	if p == "" {
		return "", ErrNoBooking
	}

	local, err := r.bookings.FindFlexible(p, r.now())
	if err != nil {
		return "", err
	}
	if local != nil {
		return local.EventID, nil
	}

	ev, err := r.SearchCalendar(ctx, p)
	if err != nil {
		return "", err
	}
	if ev == nil {
		return "", ErrNoBooking
	}
	return ev.ID, nil
}

// relocate handles a stale reference: purge the local row, then look for an
// active replacement upstream and adopt it.
func (r *Resolver) relocate(ctx context.Context, p, staleID string) (*calendar.Event, error) {
	r.log.Info().Str("eventId", staleID).Msg("booking stale upstream, relocating")

	if err := r.bookings.Delete(staleID); err != nil {
		return nil, err
	}

	ev, err := r.SearchCalendar(ctx, p)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrNoActiveBooking
	}

	// The cache catches up to reality.
	if err := r.adopt(p, ev); err != nil {
		return nil, err
	}
	r.log.Info().Str("staleId", staleID).Str("eventId", ev.ID).Msg("adopted active replacement")
	return ev, nil
}

func (r *Resolver) adopt(p string, ev *calendar.Event) error {
	return r.bookings.Upsert(domain.Booking{
		EventID:     ev.ID,
		OwnerPhone:  p,
		StartTime:   ev.Start,
		Description: ev.Summary,
	})
}

// SearchCalendar scans upcoming calendar events for one whose summary or
// description carries the phone as a digit suffix (mutual containment, at
// least eight digits on both sides). Returns the earliest match or nil.
func (r *Resolver) SearchCalendar(ctx context.Context, rawPhone string) (*calendar.Event, error) {
	p := phone.Normalize(rawPhone)
	if len(p) < phone.MinCalendarDigits {
		return nil, nil
	}

	now := r.now()
	events, err := r.cal.ListEvents(ctx, now, now.AddDate(0, 0, lookAheadDays))
	if err != nil {
		return nil, fmt.Errorf("searching calendar for %s: %w", p, err)
	}

	for i := range events {
		ev := &events[i]
		if phone.SuffixMatch(ev.Summary, p, phone.MinCalendarDigits) ||
			phone.SuffixMatch(ev.Description, p, phone.MinCalendarDigits) {
			return ev, nil
		}
	}
	return nil, nil
}

// Cancel resolves and verifies the booking, deletes it upstream, then
// deletes the local row. Upstream deletion treats "already gone" as success,
// so the end state is the same either way.
func (r *Resolver) Cancel(ctx context.Context, rawPhone, candidateID string) error {
	target, err := r.Resolve(ctx, rawPhone, candidateID)
	if err != nil {
		return err
	}

	if err := r.cal.DeleteEvent(ctx, target.EventID); err != nil {
		return fmt.Errorf("cancelling upstream: %w", err)
	}
	if err := r.bookings.Delete(target.EventID); err != nil {
		return err
	}

	r.log.Info().Str("eventId", target.EventID).Msg("booking cancelled")
	return nil
}

// Reschedule resolves and verifies the booking, validates newStart against
// the scheduling floor, patches the upstream event, then updates the local
// row best-effort. A local update failure after a successful upstream patch
// is logged, not escalated: the background reconciler corrects it on its
// next pass.
func (r *Resolver) Reschedule(ctx context.Context, rawPhone, candidateID string, newStart time.Time) error {
	target, err := r.Resolve(ctx, rawPhone, candidateID)
	if err != nil {
		return err
	}

	min := r.grid.MinimumSchedulableDate(r.now())
	if newStart.Before(min) {
		return &TooSoonError{Minimum: min}
	}

	newEnd := newStart.Add(r.grid.Granularity)
	if _, err := r.cal.PatchEventTime(ctx, target.EventID, newStart, newEnd); err != nil {
		return fmt.Errorf("rescheduling upstream: %w", err)
	}

	if err := r.bookings.UpdateStartTime(target.EventID, newStart); err != nil {
		r.log.Warn().Err(err).Str("eventId", target.EventID).Msg("local update failed after upstream patch")
	}

	r.log.Info().Str("eventId", target.EventID).Time("newStart", newStart).Msg("booking rescheduled")
	return nil
}

// Lookup resolves the user's next booking without mutating anything. The
// local cache is tried first; on a miss the calendar is searched directly
// and the discovery is linked back into the cache.
func (r *Resolver) Lookup(ctx context.Context, rawPhone string) (*domain.Booking, error) {
	p := phone.Normalize(rawPhone)

	local, err := r.bookings.FindFlexible(p, r.now())
	if err != nil {
		return nil, err
	}
	if local != nil {
		return local, nil
	}

	ev, err := r.SearchCalendar(ctx, p)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrNoBooking
	}

	if err := r.adopt(p, ev); err != nil {
		r.log.Warn().Err(err).Str("eventId", ev.ID).Msg("failed to link discovered booking")
	}
	return &domain.Booking{
		EventID:     ev.ID,
		OwnerPhone:  p,
		StartTime:   ev.Start,
		Description: ev.Summary,
	}, nil
}

// PlausibleEventID rejects strings that cannot be calendar event IDs:
// whitespace, commas, colons, more than one hyphen, or fewer than five
// characters. Decision-makers sometimes hand back a date string where an ID
// belongs; these shapes give that away.
func PlausibleEventID(id string) bool {
	if len(id) < 5 {
		return false
	}
	if strings.ContainsAny(id, " \t\n,:") {
		return false
	}
	return strings.Count(id, "-") <= 1
}
