// Package availability combines the time grid with calendar reads to answer
// "what can still be booked, and when".
package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/timegrid"
)

// searchWindowDays bounds the forward search for the next free day.
const searchWindowDays = 14

// Engine computes free slots against the calendar of record.
type Engine struct {
	cal  calendar.Gateway
	grid timegrid.Grid
	log  *logging.Logger
	now  func() time.Time
}

// New creates an availability engine.
func New(cal calendar.Gateway, grid timegrid.Grid, log *logging.Logger) *Engine {
	return &Engine{cal: cal, grid: grid, log: log.Sub("availability"), now: time.Now}
}

// WithClock overrides the engine's clock. Test helper.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Day pairs a date with its remaining free slots.
type Day struct {
	Date  time.Time
	Slots []timegrid.Slot
}

// SlotsForDay returns the day's free slots, optionally filtered by period
// tag. An empty result is a normal answer, not an error: the day may be
// fully booked or blocked outright by an all-day busy marker.
func (e *Engine) SlotsForDay(ctx context.Context, date time.Time, period string) ([]timegrid.Slot, error) {
	slots := e.grid.DaySlots(date)
	if period != "" {
		filtered := slots[:0]
		for _, s := range slots {
			if timegrid.MatchesPeriod(s, period) {
				filtered = append(filtered, s)
			}
		}
		slots = filtered
	}
	if len(slots) == 0 {
		return nil, nil
	}

	loc := e.grid.Location
	events, err := e.cal.ListEvents(ctx, timegrid.StartOfDay(date, loc), timegrid.EndOfDay(date, loc))
	if err != nil {
		return nil, fmt.Errorf("fetching events for %s: %w", date.Format("2006-01-02"), err)
	}

	// An all-day busy marker blocks the whole day, no matter what the
	// timed events look like.
	for _, ev := range events {
		if !ev.AllDay {
			continue
		}
		if strings.Contains(strings.ToLower(ev.Summary), "ocupado") || !ev.Transparent {
			e.log.Debug().
				Str("date", date.Format("2006-01-02")).
				Str("summary", ev.Summary).
				Msg("day blocked by all-day event")
			return nil, nil
		}
	}

	free := slots[:0]
	for _, s := range slots {
		if !e.blocked(s, events) {
			free = append(free, s)
		}
	}
	return free, nil
}

func (e *Engine) blocked(s timegrid.Slot, events []calendar.Event) bool {
	for _, ev := range events {
		if ev.AllDay || ev.Start.IsZero() || ev.End.IsZero() {
			continue
		}
		if timegrid.Overlaps(s.Start, s.End(), ev.Start, ev.End) {
			return true
		}
	}
	return false
}

// FindNextAvailable searches forward, day by day, for the first day with an
// acceptable offer.
//
// The search starts at the minimum schedulable date; an after date later than
// that moves the start to the following day, which is how callers page
// through offers ("the next day after the one I rejected"). An after date
// earlier than the floor is ignored: the floor always wins.
//
// preferredTime ("HH:mm") narrows the search to days holding at least one
// slot in that hour; on such days the matching slots are moved to the front
// (stable partition, original order preserved within each group).
//
// Returns (nil, nil) when the window is exhausted.
func (e *Engine) FindNextAvailable(ctx context.Context, period string, after *time.Time, preferredTime string) (*Day, error) {
	loc := e.grid.Location
	current := e.grid.MinimumSchedulableDate(e.now())

	if after != nil {
		next := timegrid.StartOfDay(*after, loc).AddDate(0, 0, 1)
		if next.After(current) {
			current = next
		}
	}

	prefHour, hasPref := parseHour(preferredTime)

	last := current.AddDate(0, 0, searchWindowDays)
	for !current.After(last) {
		slots, err := e.SlotsForDay(ctx, current, period)
		if err != nil {
			return nil, err
		}

		if len(slots) > 0 {
			if !hasPref {
				return &Day{Date: current, Slots: slots}, nil
			}

			var matching, rest []timegrid.Slot
			for _, s := range slots {
				if s.Start.Hour() == prefHour {
					matching = append(matching, s)
				} else {
					rest = append(rest, s)
				}
			}
			if len(matching) > 0 {
				return &Day{Date: current, Slots: append(matching, rest...)}, nil
			}
			// Day has offers but none at the preferred hour: skip it.
		}

		current = current.AddDate(0, 0, 1)
	}

	return nil, nil
}

// parseHour extracts the hour from an "HH:mm" string.
func parseHour(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	head, _, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
