package ops

import (
	"context"
	"time"

	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/phone"
	"github.com/dpereira/agendai/internal/store"
	"github.com/dpereira/agendai/internal/timegrid"
)

// defaultClientName stands in when the decision-maker never learned a name.
const defaultClientName = "Cliente"

// ScheduleAppointment books a new appointment: calendar of record first,
// then the local cache.
type ScheduleAppointment struct {
	cal        calendar.Gateway
	identities *store.IdentityStore
	bookings   *store.BookingStore
	grid       timegrid.Grid
	log        *logging.Logger
	now        func() time.Time
}

func NewScheduleAppointment(cal calendar.Gateway, identities *store.IdentityStore, bookings *store.BookingStore, grid timegrid.Grid, log *logging.Logger) *ScheduleAppointment {
	return &ScheduleAppointment{
		cal:        cal,
		identities: identities,
		bookings:   bookings,
		grid:       grid,
		log:        log.Sub("schedule_appointment"),
		now:        time.Now,
	}
}

// WithClock overrides the operation's clock. Test helper.
func (o *ScheduleAppointment) WithClock(now func() time.Time) *ScheduleAppointment {
	o.now = now
	return o
}

func (o *ScheduleAppointment) Name() string { return "schedule_appointment" }

func (o *ScheduleAppointment) Description() string {
	return `Agenda uma consulta. Argumentos: {"name": "Nome", "phone": "5511...", "datetime": "YYYY-MM-DDTHH:mm:ss", "summary": "Motivo"}`
}

func (o *ScheduleAppointment) Schema() string {
	return `{"type":"object","properties":{"name":{"type":"string"},"phone":{"type":"string"},"datetime":{"type":"string"},"summary":{"type":"string"}},"required":["phone","datetime"]}`
}

func (o *ScheduleAppointment) Execute(ctx context.Context, args map[string]any) (string, error) {
	start, err := parseDateTime(stringArg(args, "datetime"), o.grid.Location)
	if err != nil {
		return "Data/hora inválida. Use o formato ISO (ex: YYYY-MM-DDTHH:mm:ss).", nil
	}

	p := phone.Normalize(stringArg(args, "phone"))
	if p == "" {
		return "Telefone é obrigatório para agendar.", nil
	}

	min := o.grid.MinimumSchedulableDate(o.now())
	if start.Before(min) {
		return "Agendamento não permitido. Só é possível agendar com 2 dias úteis de antecedência (a partir de " +
			formatFriendly(min) + "). Por favor, escolha outra data.", nil
	}

	name := stringArg(args, "name")
	if name == "" {
		name = defaultClientName
	}
	if err := o.identities.Upsert(p, name); err != nil {
		o.log.Warn().Err(err).Str("phone", p).Msg("identity upsert failed")
	}

	summary := stringArg(args, "summary")
	event, err := o.cal.CreateEvent(ctx, calendar.Draft{
		Summary:     name + " " + phone.Display(p),
		Description: summary,
		Start:       start,
		End:         start.Add(o.grid.Granularity),
	})
	if err != nil {
		return "Falha ao realizar agendamento. Verifique os dados (data/hora).", err
	}

	if err := o.bookings.Upsert(domain.Booking{
		EventID:     event.ID,
		OwnerPhone:  p,
		StartTime:   start,
		Description: summary,
	}); err != nil {
		// The calendar of record has the booking; the reconciler will
		// backfill the cache.
		o.log.Warn().Err(err).Str("eventId", event.ID).Msg("local booking upsert failed")
	}

	o.log.Info().Str("eventId", event.ID).Str("phone", p).Time("start", start).Msg("appointment created")
	return "Agendamento realizado com sucesso para " + formatDateTime(start) + "! ID: " + event.ID, nil
}
