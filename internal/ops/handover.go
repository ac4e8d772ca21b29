package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/messenger"
	"github.com/dpereira/agendai/internal/store"
)

// HandoverSentinel marks a dispatch round as ended by a handover request.
// The dispatcher replaces it with the fixed transfer reply and never shows
// it to the user.
const HandoverSentinel = "[SYSTEM]: HANDOVER_REQUESTED."

// Handover escalates the conversation to a human: the clinic owner gets a
// notification and the user's identity is marked so follow-up messages are
// not answered automatically.
type Handover struct {
	msgr       messenger.Messenger
	identities *store.IdentityStore
	ownerPhone string
	log        *logging.Logger
	now        func() time.Time
}

func NewHandover(msgr messenger.Messenger, identities *store.IdentityStore, ownerPhone string, log *logging.Logger) *Handover {
	return &Handover{
		msgr:       msgr,
		identities: identities,
		ownerPhone: ownerPhone,
		log:        log.Sub("handover"),
		now:        time.Now,
	}
}

// WithClock overrides the operation's clock. Test helper.
func (o *Handover) WithClock(now func() time.Time) *Handover {
	o.now = now
	return o
}

func (o *Handover) Name() string { return "handover" }

func (o *Handover) Description() string {
	return `Encaminha a conversa para atendimento humano quando o usuário pede algo fora do escopo, relata urgência ou quer falar com uma pessoa. Argumentos: {"name": "...", "phone": "...", "reason": "...", "plan": "..."}`
}

func (o *Handover) Schema() string {
	return `{"type":"object","properties":{"name":{"type":"string"},"phone":{"type":"string"},"reason":{"type":"string"},"plan":{"type":"string"}}}`
}

func (o *Handover) Execute(ctx context.Context, args map[string]any) (string, error) {
	name := orDefault(stringArg(args, "name"), "Não informado")
	p := stringArg(args, "phone")
	reason := orDefault(stringArg(args, "reason"), "Necessita atenção humana/urgência")
	plan := orDefault(stringArg(args, "plan"), "Não informado")

	notification := "🚨 *ENCAMINHAMENTO* 🚨\n\n" +
		"👤 *Pac:* " + name + "\n" +
		"📱 *Tel:* " + orDefault(p, "Não informado") + "\n" +
		"📝 *Motivo:* " + reason + "\n" +
		"📋 *Plano:* " + plan

	if o.ownerPhone != "" {
		if err := o.msgr.Send(ctx, o.ownerPhone, notification); err != nil {
			o.log.Error().Err(err).Msg("owner notification failed")
		}
	} else {
		o.log.Warn().Msg("owner phone not configured, handover logged only")
	}

	if p != "" {
		if err := o.identities.TouchHumanContact(p, o.now()); err != nil {
			o.log.Warn().Err(err).Str("phone", p).Msg("failed to mark human contact")
		}
	}

	o.log.Info().Str("phone", p).Str("reason", reason).Msg("handover requested")
	return fmt.Sprintf("%s Reason: %s", HandoverSentinel, reason), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
