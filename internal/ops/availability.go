package ops

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/availability"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/timegrid"
)

const (
	// specificDateLimit caps the slots listed for an explicit date query.
	specificDateLimit = 5
	// nextAvailableLimit caps the slots offered from a forward search.
	nextAvailableLimit = 2
)

// CheckAvailability lists free appointment slots, either for one explicit
// date or by searching forward for the next day with openings.
type CheckAvailability struct {
	engine *availability.Engine
	grid   timegrid.Grid
	log    *logging.Logger
	now    func() time.Time
}

func NewCheckAvailability(engine *availability.Engine, grid timegrid.Grid, log *logging.Logger) *CheckAvailability {
	return &CheckAvailability{engine: engine, grid: grid, log: log.Sub("check_availability"), now: time.Now}
}

// WithClock overrides the operation's clock. Test helper.
func (o *CheckAvailability) WithClock(now func() time.Time) *CheckAvailability {
	o.now = now
	return o
}

func (o *CheckAvailability) Name() string { return "check_availability" }

func (o *CheckAvailability) Description() string {
	return `Verifica horários disponíveis. Argumentos opcionais: "period" (manhã, tarde, noite), "date" (YYYY-MM-DD) para um dia específico, "afterDate" (YYYY-MM-DD) para buscar a partir do dia seguinte, "preferredTime" (HH:mm) para priorizar um horário.`
}

func (o *CheckAvailability) Schema() string {
	return `{"type":"object","properties":{"period":{"type":"string"},"date":{"type":"string"},"afterDate":{"type":"string"},"preferredTime":{"type":"string"}}}`
}

func (o *CheckAvailability) Execute(ctx context.Context, args map[string]any) (string, error) {
	period := stringArg(args, "period")
	dateStr := stringArg(args, "date")
	afterStr := stringArg(args, "afterDate")
	preferred := stringArg(args, "preferredTime")

	if dateStr != "" {
		return o.specificDate(ctx, dateStr, period, preferred)
	}
	return o.nextAvailable(ctx, period, afterStr, preferred)
}

func (o *CheckAvailability) specificDate(ctx context.Context, dateStr, period, preferred string) (string, error) {
	date, err := parseDate(dateStr, o.grid.Location)
	if err != nil {
		return "Data inválida. Use o formato YYYY-MM-DD.", nil
	}

	min := o.grid.MinimumSchedulableDate(o.now())
	if date.Before(min) {
		return "Data inválida. Só é possível agendar com 2 dias úteis de antecedência (a partir de " + formatFriendly(min) + ").", nil
	}

	slots, err := o.engine.SlotsForDay(ctx, date, period)
	if err != nil {
		return "Erro ao verificar disponibilidade.", err
	}
	if len(slots) == 0 {
		msg := "Não há horários disponíveis para o dia " + formatDay(date)
		if period != "" {
			msg += " (" + period + ")"
		}
		return msg + ".", nil
	}

	if preferred != "" {
		if hour, ok := parsePreferredHour(preferred); ok && !hasHour(slots, hour) {
			return "Para o dia " + formatDay(date) + ", não temos horários próximos às " + preferred +
				". Temos: " + joinTimes(slots, specificDateLimit, ", ") + ".", nil
		}
	}

	return "Horários disponíveis para " + formatDay(date) + ":\n" + joinTimes(slots, specificDateLimit, "\n"), nil
}

func (o *CheckAvailability) nextAvailable(ctx context.Context, period, afterStr, preferred string) (string, error) {
	var after *time.Time
	if afterStr != "" {
		if t, err := parseDate(afterStr, o.grid.Location); err == nil {
			after = &t
		}
	}

	day, err := o.engine.FindNextAvailable(ctx, period, after, preferred)
	if err != nil {
		return "Erro ao verificar disponibilidade.", err
	}
	if day == nil || len(day.Slots) == 0 {
		msg := "Não encontrei horários disponíveis nos próximos 14 dias para esse período"
		if preferred != "" {
			msg += " (aprox. " + preferred + ")"
		}
		return msg + ".", nil
	}

	return "Encontrei horários para " + day.Date.Format("2006-01-02") + ":\n" +
		joinTimes(day.Slots, nextAvailableLimit, "\n"), nil
}

func parsePreferredHour(s string) (int, bool) {
	h, _, ok := strings.Cut(s, ":")
	if !ok {
		h = s
	}
	n, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || n < 0 || n > 23 {
		return 0, false
	}
	return n, true
}

func hasHour(slots []timegrid.Slot, hour int) bool {
	for _, s := range slots {
		if s.Start.Hour() == hour {
			return true
		}
	}
	return false
}

func joinTimes(slots []timegrid.Slot, limit int, sep string) string {
	if len(slots) > limit {
		slots = slots[:limit]
	}
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = s.Start.Format("15:04")
	}
	return strings.Join(parts, sep)
}
