package routing

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/agendai/internal/decider"
	"github.com/dpereira/agendai/internal/dispatch"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/messenger"
	"github.com/dpereira/agendai/internal/ops"
	"github.com/dpereira/agendai/internal/store"
	"github.com/dpereira/agendai/internal/transcribe"
)

func newHandler(t *testing.T, mock *decider.Mock) (*Handler, *messenger.Fake, *store.MessageStore, *store.IdentityStore) {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	db, err := store.Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	identities := store.NewIdentityStore(db)
	messages := store.NewMessageStore(db)
	msgr := &messenger.Fake{}
	loop := dispatch.NewLoop(mock, ops.NewRegistry(), logging.Silent())

	h := NewHandler(identities, messages, loop, msgr,
		"Dra. Priscila", "Benjamin Constant, 61", loc, logging.Silent())
	h.WithClock(func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, loc) })
	return h, msgr, messages, identities
}

func TestHandleMessage_ReplySentAndPersisted(t *testing.T) {
	mock := &decider.Mock{Script: []decider.Decision{{Text: "Bom dia! Sou a assistente virtual. Como posso ajudar?"}}}
	h, msgr, messages, identities := newHandler(t, mock)

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "Bom dia")

	require.NotNil(t, msgr.Last())
	assert.Equal(t, "5511999999999@s.whatsapp.net", msgr.Last().Recipient)
	assert.Contains(t, msgr.Last().Text, "assistente virtual")

	// Typing indicator preceded the reply.
	assert.Equal(t, []string{"5511999999999@s.whatsapp.net"}, msgr.Presences)

	// Identity auto-created, both turns persisted.
	id, err := identities.Get("5511999999999")
	require.NoError(t, err)
	require.NotNil(t, id)

	history, err := messages.History("5511999999999", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "Bom dia", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestHandleMessage_SystemPromptCarriesIdentity(t *testing.T) {
	mock := &decider.Mock{Script: []decider.Decision{{Text: "Olá, Maria!"}}}
	h, _, _, identities := newHandler(t, mock)
	require.NoError(t, identities.Upsert("5511999999999", "Maria"))

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "oi")

	require.Len(t, mock.Calls, 1)
	assert.Contains(t, mock.Calls[0].System, "Maria (5511999999999)")
	assert.Contains(t, mock.Calls[0].System, "sexta-feira, 28/08/2026 10:00")
}

func TestHandleMessage_HandoverReplacedWithTransferReply(t *testing.T) {
	mock := &decider.Mock{Script: []decider.Decision{
		{Text: "[SYSTEM]: HANDOVER_REQUESTED. Reason: urgência"},
	}}
	h, msgr, messages, _ := newHandler(t, mock)

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "estou com muita dor")

	require.NotNil(t, msgr.Last())
	assert.Contains(t, msgr.Last().Text, "Vou transferir seu atendimento para a Dra. Priscila")
	assert.NotContains(t, msgr.Last().Text, "HANDOVER_REQUESTED")

	// The sentinel never reaches the stored transcript either.
	history, err := messages.History("5511999999999", 10)
	require.NoError(t, err)
	assert.NotContains(t, history[len(history)-1].Content, "HANDOVER_REQUESTED")
}

func TestHandleMessage_EmptyTextIgnored(t *testing.T) {
	mock := &decider.Mock{}
	h, msgr, _, _ := newHandler(t, mock)

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "   ")

	assert.Nil(t, msgr.Last())
	assert.Empty(t, mock.Calls)
}

func TestHandleMessage_DispatchFailureSendsApology(t *testing.T) {
	mock := &decider.Mock{DecideFunc: func(ctx context.Context, req decider.Request) (*decider.Decision, error) {
		return nil, context.DeadlineExceeded
	}}
	h, msgr, _, _ := newHandler(t, mock)

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "oi")

	require.NotNil(t, msgr.Last())
	assert.Contains(t, msgr.Last().Text, "erro técnico")
}

func TestHandleMessage_SamePhoneIsSequential(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex

	mock := &decider.Mock{DecideFunc: func(ctx context.Context, req decider.Request) (*decider.Decision, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return &decider.Decision{Text: "ok"}, nil
	}}
	h, _, _, _ := newHandler(t, mock)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "oi")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive, "same-phone messages must not interleave")
}

func TestHandleAudio_TranscribedIntoRegularTurn(t *testing.T) {
	mock := &decider.Mock{Script: []decider.Decision{{Text: "Claro! Para qual dia?"}}}
	h, msgr, messages, _ := newHandler(t, mock)
	tr := &transcribe.Fake{Text: "Quero marcar uma consulta"}
	h.WithTranscriber(tr)

	h.HandleAudio(context.Background(), "5511999999999@s.whatsapp.net", "b64audio")

	require.Equal(t, []string{"b64audio"}, tr.Calls)

	require.NotNil(t, msgr.Last())
	assert.Contains(t, msgr.Last().Text, "Para qual dia?")

	// The transcription enters the transcript as a regular user turn.
	history, err := messages.History("5511999999999", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "Quero marcar uma consulta", history[0].Content)
}

func TestHandleAudio_TranscriptionFailureSendsApology(t *testing.T) {
	mock := &decider.Mock{}
	h, msgr, messages, _ := newHandler(t, mock)
	h.WithTranscriber(&transcribe.Fake{Err: context.DeadlineExceeded})

	h.HandleAudio(context.Background(), "5511999999999@s.whatsapp.net", "b64audio")

	require.NotNil(t, msgr.Last())
	assert.Equal(t, "Desculpe, não consegui ouvir seu áudio. Pode escrever?", msgr.Last().Text)
	assert.Empty(t, mock.Calls)

	// Nothing entered the transcript.
	history, err := messages.History("5511999999999", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHandleAudio_NoTranscriberConfigured(t *testing.T) {
	mock := &decider.Mock{}
	h, msgr, _, _ := newHandler(t, mock)

	h.HandleAudio(context.Background(), "5511999999999@s.whatsapp.net", "b64audio")

	require.NotNil(t, msgr.Last())
	assert.Contains(t, msgr.Last().Text, "não consegui ouvir seu áudio")
	assert.Empty(t, mock.Calls)
}

func TestHandleMessage_HistoryWindowFedToDecider(t *testing.T) {
	mock := &decider.Mock{Script: []decider.Decision{{Text: "a"}, {Text: "b"}}}
	h, _, _, _ := newHandler(t, mock)

	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "primeira")
	h.HandleMessage(context.Background(), "5511999999999@s.whatsapp.net", "segunda")

	require.Len(t, mock.Calls, 2)
	second := mock.Calls[1].Transcript
	require.Len(t, second, 3)
	assert.Equal(t, "primeira", second[0].Content)
	assert.Equal(t, "a", second[1].Content)
	assert.Equal(t, "segunda", second[2].Content)
	assert.True(t, strings.HasSuffix(second[2].Content, "segunda"))
}
