package timegrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func TestMinimumSchedulableDate(t *testing.T) {
	loc := saoPaulo(t)
	g := Default(loc)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			// Two business days from Friday skip the weekend.
			name: "friday lands on tuesday",
			now:  time.Date(2026, 8, 28, 10, 0, 0, 0, loc), // Friday
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, loc),   // Tuesday
		},
		{
			name: "monday lands on wednesday",
			now:  time.Date(2026, 8, 24, 9, 30, 0, 0, loc), // Monday
			want: time.Date(2026, 8, 26, 0, 0, 0, 0, loc),  // Wednesday
		},
		{
			name: "thursday lands on monday",
			now:  time.Date(2026, 8, 27, 23, 59, 0, 0, loc), // Thursday
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, loc),   // Monday
		},
		{
			name: "saturday lands on tuesday",
			now:  time.Date(2026, 8, 29, 8, 0, 0, 0, loc), // Saturday
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, loc),  // Tuesday
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.MinimumSchedulableDate(tt.now)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestDaySlots(t *testing.T) {
	loc := saoPaulo(t)
	g := Default(loc)

	day1 := time.Date(2026, 9, 1, 0, 0, 0, 0, loc)
	day2 := time.Date(2026, 12, 24, 0, 0, 0, 0, loc)

	slots1 := g.DaySlots(day1)
	slots2 := g.DaySlots(day2)

	// 08:00–18:00 at 15 minutes is exactly 40 slots on any day.
	assert.Len(t, slots1, 40)
	assert.Equal(t, len(slots1), len(slots2))

	first := slots1[0]
	last := slots1[len(slots1)-1]
	assert.Equal(t, 8, first.Start.Hour())
	assert.Equal(t, 0, first.Start.Minute())
	assert.Equal(t, 17, last.Start.Hour())
	assert.Equal(t, 45, last.Start.Minute())

	for _, s := range slots1 {
		assert.False(t, s.Start.Before(day1.Add(g.WindowStart)), "slot before window: %v", s.Start)
		assert.True(t, s.Start.Before(day1.Add(g.WindowEnd)), "slot at or past window end: %v", s.Start)
		assert.Equal(t, g.Granularity, s.Duration)
	}

	// Ordered.
	for i := 1; i < len(slots1); i++ {
		assert.True(t, slots1[i-1].Start.Before(slots1[i].Start))
	}
}

func slotAt(t *testing.T, loc *time.Location, hour, min int) Slot {
	t.Helper()
	return Slot{
		Start:    time.Date(2026, 9, 1, hour, min, 0, 0, loc),
		Duration: 15 * time.Minute,
	}
}

func TestMatchesPeriod(t *testing.T) {
	loc := saoPaulo(t)

	tests := []struct {
		name string
		hour int
		min  int
		tag  string
		want bool
	}{
		{"morning early", 8, 0, "manhã", true},
		{"morning last slot", 11, 45, "manhã", true},
		{"noon excluded from morning", 12, 0, "manhã", false},
		{"dia counts as morning", 9, 0, "durante o dia", true},

		{"afternoon starts at noon", 12, 0, "tarde", true},
		{"afternoon last slot", 17, 15, "tarde", true},
		{"17:30 excluded from afternoon", 17, 30, "tarde", false},
		{"morning excluded from afternoon", 11, 45, "TARDE", false},

		{"evening starts 17:30", 17, 30, "noite", true},
		{"evening mid", 18, 0, "noite", true},
		{"evening includes 19:30 start", 19, 30, "noite", true},
		{"19:45 excluded from evening", 19, 45, "noite", false},
		{"17:15 excluded from evening", 17, 15, "noite", false},

		{"unknown tag matches everything", 8, 0, "qualquer", true},
		{"empty tag matches everything", 19, 45, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := slotAt(t, loc, tt.hour, tt.min)
			assert.Equal(t, tt.want, MatchesPeriod(s, tt.tag))
		})
	}
}

func TestOverlaps(t *testing.T) {
	loc := saoPaulo(t)
	at := func(hour, min int) time.Time {
		return time.Date(2026, 9, 1, hour, min, 0, 0, loc)
	}

	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical", at(10, 0), at(10, 15), at(10, 0), at(10, 15), true},
		{"partial", at(10, 0), at(10, 15), at(10, 10), at(10, 30), true},
		{"containment", at(10, 0), at(11, 0), at(10, 15), at(10, 30), true},
		{"event ends at slot start", at(10, 0), at(10, 15), at(9, 0), at(10, 0), false},
		{"event starts at slot end", at(10, 0), at(10, 15), at(10, 15), at(11, 0), false},
		{"disjoint", at(10, 0), at(10, 15), at(14, 0), at(15, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestDayHelpers(t *testing.T) {
	loc := saoPaulo(t)
	mid := time.Date(2026, 9, 1, 14, 33, 12, 999, loc)

	start := StartOfDay(mid, loc)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, loc), start)

	end := EndOfDay(mid, loc)
	assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, loc), end)

	assert.True(t, SameDay(mid, start, loc))
	assert.False(t, SameDay(mid, end, loc))
}
