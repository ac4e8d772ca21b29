package ops

import (
	"context"
	"errors"

	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/reconcile"
	"github.com/dpereira/agendai/internal/timegrid"
)

// GetAppointments finds the user's next appointment by phone.
type GetAppointments struct {
	resolver *reconcile.Resolver
	log      *logging.Logger
}

func NewGetAppointments(resolver *reconcile.Resolver, log *logging.Logger) *GetAppointments {
	return &GetAppointments{resolver: resolver, log: log.Sub("get_appointments")}
}

func (o *GetAppointments) Name() string { return "get_appointments" }

func (o *GetAppointments) Description() string {
	return `Busca o próximo agendamento do usuário pelo telefone. Argumentos: {"phone": "5511..."}`
}

func (o *GetAppointments) Schema() string {
	return `{"type":"object","properties":{"phone":{"type":"string"}},"required":["phone"]}`
}

func (o *GetAppointments) Execute(ctx context.Context, args map[string]any) (string, error) {
	booking, err := o.resolver.Lookup(ctx, stringArg(args, "phone"))
	switch {
	case errors.Is(err, reconcile.ErrNoBooking):
		return "Nenhum agendamento futuro encontrado para este número.", nil
	case err != nil:
		return "Erro ao buscar agendamentos.", err
	}

	return "Agendamento encontrado: \"" + booking.Description + "\"\n" +
		"Data: " + formatDateTime(booking.StartTime) + "\n" +
		"ID do Evento: " + booking.EventID, nil
}

// CancelAppointment cancels the user's appointment, calendar of record
// first.
type CancelAppointment struct {
	resolver *reconcile.Resolver
	log      *logging.Logger
}

func NewCancelAppointment(resolver *reconcile.Resolver, log *logging.Logger) *CancelAppointment {
	return &CancelAppointment{resolver: resolver, log: log.Sub("cancel_appointment")}
}

func (o *CancelAppointment) Name() string { return "cancel_appointment" }

func (o *CancelAppointment) Description() string {
	return `Cancela o agendamento do usuário. Argumentos: {"phone": "5511...", "eventId": "..." (opcional)}`
}

func (o *CancelAppointment) Schema() string {
	return `{"type":"object","properties":{"phone":{"type":"string"},"eventId":{"type":"string"}},"required":["phone"]}`
}

func (o *CancelAppointment) Execute(ctx context.Context, args map[string]any) (string, error) {
	err := o.resolver.Cancel(ctx, stringArg(args, "phone"), stringArg(args, "eventId"))
	switch {
	case errors.Is(err, reconcile.ErrNoBooking):
		return "Não encontrei agendamento para cancelar. Pode me confirmar o número?", nil
	case errors.Is(err, reconcile.ErrNoActiveBooking):
		return "Não encontrei nenhum agendamento ativo no calendário para cancelar.", nil
	case err != nil:
		return "Erro ao cancelar agendamento.", err
	}
	return "Agendamento cancelado com sucesso!", nil
}

// RescheduleAppointment moves the user's appointment to a new time.
type RescheduleAppointment struct {
	resolver *reconcile.Resolver
	grid     timegrid.Grid
	log      *logging.Logger
}

func NewRescheduleAppointment(resolver *reconcile.Resolver, grid timegrid.Grid, log *logging.Logger) *RescheduleAppointment {
	return &RescheduleAppointment{resolver: resolver, grid: grid, log: log.Sub("reschedule_appointment")}
}

func (o *RescheduleAppointment) Name() string { return "reschedule_appointment" }

func (o *RescheduleAppointment) Description() string {
	return `Remarca o agendamento do usuário. Argumentos: {"phone": "5511...", "newDateTime": "YYYY-MM-DDTHH:mm:ss", "eventId": "..." (opcional)}`
}

func (o *RescheduleAppointment) Schema() string {
	return `{"type":"object","properties":{"phone":{"type":"string"},"newDateTime":{"type":"string"},"eventId":{"type":"string"}},"required":["phone","newDateTime"]}`
}

func (o *RescheduleAppointment) Execute(ctx context.Context, args map[string]any) (string, error) {
	newStart, err := parseDateTime(stringArg(args, "newDateTime"), o.grid.Location)
	if err != nil {
		return "Data/hora inválida para remarcação.", nil
	}

	err = o.resolver.Reschedule(ctx, stringArg(args, "phone"), stringArg(args, "eventId"), newStart)
	var tooSoon *reconcile.TooSoonError
	switch {
	case errors.As(err, &tooSoon):
		return "Remarcação não permitida para esta data. Só é possível agendar com 2 dias úteis de antecedência (a partir de " +
			formatFriendly(tooSoon.Minimum) + "). Por favor, escolha outra data.", nil
	case errors.Is(err, reconcile.ErrNoBooking):
		return "Não encontrei agendamento para remarcar.", nil
	case errors.Is(err, reconcile.ErrNoActiveBooking):
		return "Não encontrei o agendamento original no calendário. Pode ter sido cancelado ou movido manualmente.", nil
	case err != nil:
		return "Erro ao remarcar agendamento.", err
	}

	return "Agendamento remarcado com sucesso para " + formatDateTime(newStart) + "!", nil
}
