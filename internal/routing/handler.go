// Package routing ties an inbound WhatsApp message to one dispatch run:
// identity lookup, transcript persistence, the decision loop and the
// outbound reply.
package routing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dpereira/agendai/internal/dispatch"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/messenger"
	"github.com/dpereira/agendai/internal/phone"
	"github.com/dpereira/agendai/internal/store"
	"github.com/dpereira/agendai/internal/transcribe"
)

// historyWindow is how many stored messages feed the decision-maker.
const historyWindow = 15

// apologyReply goes out when the dispatch run fails outright.
const apologyReply = "Desculpe, tive um erro técnico. Tente novamente mais tarde."

// audioApologyReply goes out when a voice note cannot be transcribed.
const audioApologyReply = "Desculpe, não consegui ouvir seu áudio. Pode escrever?"

// Handler processes inbound messages. Messages from the same phone are
// handled strictly one at a time; different phones proceed in parallel.
type Handler struct {
	identities   *store.IdentityStore
	messages     *store.MessageStore
	loop         *dispatch.Loop
	msgr         messenger.Messenger
	professional string
	address      string
	loc          *time.Location
	log          *logging.Logger
	now          func() time.Time
	transcriber  transcribe.Transcriber

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHandler wires a message handler.
func NewHandler(identities *store.IdentityStore, messages *store.MessageStore, loop *dispatch.Loop, msgr messenger.Messenger, professional, address string, loc *time.Location, log *logging.Logger) *Handler {
	return &Handler{
		identities:   identities,
		messages:     messages,
		loop:         loop,
		msgr:         msgr,
		professional: professional,
		address:      address,
		loc:          loc,
		log:          log.Sub("routing"),
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the handler's clock. Test helper.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// WithTranscriber enables voice note handling. Without one every voice note
// gets the can't-hear apology.
func (h *Handler) WithTranscriber(tr transcribe.Transcriber) *Handler {
	h.transcriber = tr
	return h
}

// HandleMessage runs the full pipeline for one inbound text. remoteJid is
// the WhatsApp JID (e.g. "5511999999999@s.whatsapp.net"); replies go back
// to it unchanged.
func (h *Handler) HandleMessage(ctx context.Context, remoteJid, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	p := phone.Normalize(remoteJid)
	if p == "" {
		h.log.Warn().Str("remoteJid", remoteJid).Msg("message without a usable phone, dropping")
		return
	}

	lock := h.phoneLock(p)
	lock.Lock()
	defer lock.Unlock()

	h.log.Info().Str("phone", p).Int("chars", len(text)).Msg("processing inbound message")

	identity, err := h.identities.Get(p)
	if err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("identity lookup failed")
	}
	if identity == nil {
		// Name unknown until the conversation reveals it.
		if err := h.identities.Upsert(p, ""); err != nil {
			h.log.Error().Err(err).Str("phone", p).Msg("identity create failed")
		}
		identity = &domain.Identity{Phone: p}
	}

	if err := h.messages.Append(p, domain.RoleUser, text); err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("failed to persist user message")
	}

	// Typing indicator; purely cosmetic.
	_ = h.msgr.Presence(ctx, remoteJid)

	history, err := h.messages.History(p, historyWindow)
	if err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("history load failed")
		history = []domain.Message{{Role: domain.RoleUser, Content: text}}
	}

	system := dispatch.BuildSystemPrompt(dispatch.PromptData{
		Professional: h.professional,
		Address:      h.address,
		ClientName:   identity.Name,
		ClientPhone:  p,
		Now:          h.now().In(h.loc),
	})

	reply, err := h.loop.Run(ctx, system, history, p)
	if err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("dispatch run failed")
		if sendErr := h.msgr.Send(ctx, remoteJid, apologyReply); sendErr != nil {
			h.log.Error().Err(sendErr).Str("phone", p).Msg("apology delivery failed")
		}
		return
	}

	if strings.Contains(reply, "HANDOVER_REQUESTED") {
		reply = "Entendi. Vou transferir seu atendimento para a " + h.professional + "/Equipe. Por favor, aguarde um momento."
	}

	if err := h.messages.Append(p, domain.RoleAssistant, reply); err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("failed to persist reply")
	}
	if err := h.msgr.Send(ctx, remoteJid, reply); err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("reply delivery failed")
	}
}

// HandleAudio transcribes a voice note and runs the regular pipeline on the
// resulting text. When transcription fails the user is asked to type
// instead; a voice note never goes unanswered.
func (h *Handler) HandleAudio(ctx context.Context, remoteJid, audioBase64 string) {
	if audioBase64 == "" {
		return
	}
	p := phone.Normalize(remoteJid)
	if p == "" {
		h.log.Warn().Str("remoteJid", remoteJid).Msg("voice note without a usable phone, dropping")
		return
	}

	if h.transcriber == nil {
		h.log.Warn().Str("phone", p).Msg("voice note received but transcription is not configured")
		h.sendAudioApology(ctx, remoteJid, p)
		return
	}

	h.log.Info().Str("phone", p).Msg("transcribing voice note")
	text, err := h.transcriber.Transcribe(ctx, audioBase64)
	if err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("transcription failed")
		h.sendAudioApology(ctx, remoteJid, p)
		return
	}

	h.HandleMessage(ctx, remoteJid, text)
}

func (h *Handler) sendAudioApology(ctx context.Context, remoteJid, p string) {
	if err := h.msgr.Send(ctx, remoteJid, audioApologyReply); err != nil {
		h.log.Error().Err(err).Str("phone", p).Msg("audio apology delivery failed")
	}
}

func (h *Handler) phoneLock(p string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.locks[p]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[p] = lock
	}
	return lock
}
