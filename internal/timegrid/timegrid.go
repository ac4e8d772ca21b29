// Package timegrid generates candidate appointment slots and classifies them
// against the clinic's operating windows. Everything here is pure: no I/O,
// no clocks, no caches.
package timegrid

import (
	"strings"
	"time"
)

// Slot is a fixed-length candidate appointment interval within one day.
// Intervals are half-open: [Start, Start+Duration).
type Slot struct {
	Start    time.Time
	Duration time.Duration
}

// End returns the exclusive end of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Grid defines the slot geometry for a calendar day.
type Grid struct {
	// Location anchors day boundaries and slot times.
	Location *time.Location
	// WindowStart and WindowEnd are offsets from midnight bounding the
	// operating window. Slots start in [WindowStart, WindowEnd).
	WindowStart time.Duration
	WindowEnd   time.Duration
	// Granularity is the slot length.
	Granularity time.Duration
	// LeadBusinessDays is how many business days of notice a new booking
	// requires.
	LeadBusinessDays int
}

// Default returns the clinic grid: 15-minute slots from 08:00 to 18:00 with
// two business days of notice.
func Default(loc *time.Location) Grid {
	return Grid{
		Location:         loc,
		WindowStart:      8 * time.Hour,
		WindowEnd:        18 * time.Hour,
		Granularity:      15 * time.Minute,
		LeadBusinessDays: 2,
	}
}

// MinimumSchedulableDate advances now by the configured number of business
// days (Saturday and Sunday do not count) and truncates to the start of that
// day. Nothing may be booked before the returned instant.
func (g Grid) MinimumSchedulableDate(now time.Time) time.Time {
	d := now.In(g.Location)
	added := 0
	for added < g.LeadBusinessDays {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return StartOfDay(d, g.Location)
}

// DaySlots returns the ordered slot sequence for the day containing date.
// The set is recomputed on every call and is identical for any two days with
// the same grid configuration.
func (g Grid) DaySlots(date time.Time) []Slot {
	day := StartOfDay(date, g.Location)
	var slots []Slot
	for off := g.WindowStart; off < g.WindowEnd; off += g.Granularity {
		slots = append(slots, Slot{Start: day.Add(off), Duration: g.Granularity})
	}
	return slots
}

// MatchesPeriod reports whether the slot belongs to the named period of the
// day. Tags are matched by case-insensitive substring on a small vocabulary;
// an unrecognized tag matches everything. Boundary choices are deliberate and
// must not be rounded:
//
//	morning:   before 12:00
//	afternoon: 12:00 up to but excluding 17:30
//	evening:   17:30 through 19:30, inclusive of the 19:30 slot start
func MatchesPeriod(s Slot, tag string) bool {
	p := strings.ToLower(tag)
	local := s.Start
	hour, minute := local.Hour(), local.Minute()

	switch {
	case strings.Contains(p, "manh") || strings.Contains(p, "dia"):
		return hour < 12
	case strings.Contains(p, "tard"):
		return hour >= 12 && (hour < 17 || (hour == 17 && minute < 30))
	case strings.Contains(p, "noit"):
		afterStart := hour > 17 || (hour == 17 && minute >= 30)
		beforeEnd := hour < 19 || (hour == 19 && minute <= 30)
		return afterStart && beforeEnd
	}
	return true
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond-free boundary of the day containing t,
// i.e. midnight of the following day.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
