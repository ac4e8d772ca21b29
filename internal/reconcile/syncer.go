package reconcile

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/store"
)

// summaryRe extracts "<name> <phone>" from an event summary: a name fragment,
// a space or hyphen separator, then a digit run of at least eight digits.
// "Maria Silva 13999999999" and "Maria - 11999999999" both match.
var summaryRe = regexp.MustCompile(`(.+?)[\s\-]+(\d{8,})`)

// Syncer periodically re-derives identity and booking rows from the calendar
// of record. Appointments created or edited directly in the calendar become
// visible to the rest of the system through it.
type Syncer struct {
	cal        calendar.Gateway
	identities *store.IdentityStore
	bookings   *store.BookingStore
	interval   time.Duration
	log        *logging.Logger
	now        func() time.Time

	// running guards against overlapping runs: a trigger during a run is
	// skipped, not queued.
	running atomic.Bool
}

// NewSyncer creates a background syncer.
func NewSyncer(cal calendar.Gateway, identities *store.IdentityStore, bookings *store.BookingStore, interval time.Duration, log *logging.Logger) *Syncer {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Syncer{
		cal:        cal,
		identities: identities,
		bookings:   bookings,
		interval:   interval,
		log:        log.Sub("sync"),
		now:        time.Now,
	}
}

// WithClock overrides the syncer's clock. Test helper.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Start runs an immediate sync, then loops on the configured interval until
// ctx is cancelled.
func (s *Syncer) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("starting background sync loop")

	if err := s.RunOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("initial sync failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("background sync loop stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("sync failed")
			}
		}
	}
}

// RunOnce executes one synchronization pass. Single-flight: if a pass is
// already in progress the call returns immediately without doing anything.
func (s *Syncer) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug().Msg("sync already in progress, skipping")
		return nil
	}
	defer s.running.Store(false)

	now := s.now()
	events, err := s.cal.ListEvents(ctx, now, now.AddDate(0, 0, lookAheadDays))
	if err != nil {
		return err
	}

	synced := 0
	for i := range events {
		if s.syncEvent(&events[i]) {
			synced++
		}
	}

	s.log.Info().Int("events", len(events)).Int("synced", synced).Msg("sync pass complete")
	return nil
}

// syncEvent upserts the identity and booking derived from one event.
// Events whose summary does not carry a parseable "<name> <phone>" pair are
// not appointments and are skipped.
func (s *Syncer) syncEvent(ev *calendar.Event) bool {
	if ev.ID == "" || ev.Summary == "" || ev.Start.IsZero() {
		return false
	}

	m := summaryRe.FindStringSubmatch(ev.Summary)
	if m == nil {
		return false
	}
	name := strings.TrimSpace(m[1])
	phoneDigits := m[2]

	if err := s.identities.Upsert(phoneDigits, name); err != nil {
		s.log.Warn().Err(err).Str("eventId", ev.ID).Msg("identity upsert failed")
		return false
	}

	err := s.bookings.Upsert(domain.Booking{
		EventID:     ev.ID,
		OwnerPhone:  phoneDigits,
		StartTime:   ev.Start,
		Description: ev.Summary,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("eventId", ev.ID).Msg("booking upsert failed")
		return false
	}
	return true
}
