package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dpereira/agendai/internal/logging"
)

// GoogleGateway implements Gateway against the Google Calendar v3 API using
// a service account.
type GoogleGateway struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	log        *logging.Logger
}

// GoogleConfig configures the Google Calendar gateway.
type GoogleConfig struct {
	// CredentialsFile is the path to a service account JSON key.
	CredentialsFile string
	// CalendarID is the calendar to operate on; defaults to "primary".
	CalendarID string
}

// NewGoogleGateway builds a gateway authenticated as a service account.
func NewGoogleGateway(ctx context.Context, cfg GoogleConfig, loc *time.Location, log *logging.Logger) (*GoogleGateway, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading calendar credentials: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleGateway{
		svc:        svc,
		calendarID: calendarID,
		loc:        loc,
		log:        log.Sub("calendar"),
	}, nil
}

// ListEvents returns events overlapping [from, to), expanded to single
// instances and ordered by start time.
func (g *GoogleGateway) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	res, err := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		ev, err := g.fromAPI(item)
		if err != nil {
			g.log.Warn().Err(err).Str("eventId", item.Id).Msg("skipping unparseable event")
			continue
		}
		events = append(events, *ev)
	}
	return events, nil
}

func (g *GoogleGateway) CreateEvent(ctx context.Context, draft Draft) (*Event, error) {
	item, err := g.svc.Events.Insert(g.calendarID, &gcal.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       &gcal.EventDateTime{DateTime: draft.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: draft.End.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return g.fromAPI(item)
}

func (g *GoogleGateway) GetEvent(ctx context.Context, id string) (*Event, error) {
	item, err := g.svc.Events.Get(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching event %s: %w", id, err)
	}
	return g.fromAPI(item)
}

func (g *GoogleGateway) PatchEventTime(ctx context.Context, id string, start, end time.Time) (*Event, error) {
	item, err := g.svc.Events.Patch(g.calendarID, id, &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:   &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patching event %s: %w", id, err)
	}
	return g.fromAPI(item)
}

func (g *GoogleGateway) DeleteEvent(ctx context.Context, id string) error {
	err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			g.log.Warn().Str("eventId", id).Msg("event already deleted upstream, treating as success")
			return nil
		}
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	return nil
}

// fromAPI converts an API event, resolving date-only events to day
// boundaries in the gateway's location.
func (g *GoogleGateway) fromAPI(item *gcal.Event) (*Event, error) {
	ev := &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
		Transparent: item.Transparency == "transparent",
	}

	// Cancelled instances can arrive without start/end.
	if item.Start == nil || item.End == nil {
		return ev, nil
	}

	if item.Start.Date != "" {
		start, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.loc)
		if err != nil {
			return nil, fmt.Errorf("parsing all-day start %q: %w", item.Start.Date, err)
		}
		end, err := time.ParseInLocation("2006-01-02", item.End.Date, g.loc)
		if err != nil {
			return nil, fmt.Errorf("parsing all-day end %q: %w", item.End.Date, err)
		}
		ev.AllDay = true
		ev.Start = start
		ev.End = end
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("parsing start %q: %w", item.Start.DateTime, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("parsing end %q: %w", item.End.DateTime, err)
	}
	ev.Start = start.In(g.loc)
	ev.End = end.In(g.loc)
	return ev, nil
}

// isGone reports whether err is an upstream 404 or 410.
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}
