// Package gateway exposes the HTTP surface: the Evolution webhook that
// feeds inbound WhatsApp messages into the routing pipeline, plus a health
// probe.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dpereira/agendai/internal/logging"
)

// messagesUpsertEvent is the only webhook event type that carries an
// inbound message.
const messagesUpsertEvent = "messages.upsert"

// MessageHandler consumes one inbound message. Implementations must be safe
// for concurrent use; the gateway invokes it asynchronously.
type MessageHandler interface {
	HandleMessage(ctx context.Context, remoteJid, text string)
	HandleAudio(ctx context.Context, remoteJid, audioBase64 string)
}

// Server is the webhook HTTP server.
type Server struct {
	addr       string
	handler    MessageHandler
	log        *logging.Logger
	httpServer *http.Server
}

// NewServer creates a webhook server delivering messages to handler.
func NewServer(addr string, handler MessageHandler, log *logging.Logger) *Server {
	return &Server{addr: addr, handler: handler, log: log.Sub("gateway")}
}

// Start begins listening. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("webhook server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	// Evolution instances are sometimes configured with the bare base URL.
	mux.HandleFunc("POST /{$}", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// webhookEnvelope is the Evolution API webhook payload, reduced to the
// fields the gateway reads.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		Message *struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			AudioMessage *struct{} `json:"audioMessage"`
		} `json:"message"`
		// Base64 carries voice note audio when the Evolution instance is
		// configured with includeBase64OnData.
		Base64 string `json:"base64"`
	} `json:"data"`
}

// handleWebhook acknowledges immediately and processes asynchronously, so a
// slow decision run never makes the Evolution API retry the delivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var env webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.log.Warn().Err(err).Msg("undecodable webhook payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})

	if env.Event != messagesUpsertEvent {
		s.log.Debug().Str("event", env.Event).Msg("ignoring webhook event")
		return
	}
	if env.Data.Key.FromMe {
		return
	}

	text := extractText(&env)
	audio := extractAudio(&env)
	remoteJid := env.Data.Key.RemoteJid
	if remoteJid == "" || (text == "" && audio == "") {
		return
	}

	go func() {
		// Detached from the request: the 200 already went out.
		if text != "" {
			s.handler.HandleMessage(context.Background(), remoteJid, text)
			return
		}
		s.handler.HandleAudio(context.Background(), remoteJid, audio)
	}()
}

func extractText(env *webhookEnvelope) string {
	msg := env.Data.Message
	if msg == nil {
		return ""
	}
	if msg.Conversation != "" {
		return msg.Conversation
	}
	if msg.ExtendedTextMessage != nil {
		return msg.ExtendedTextMessage.Text
	}
	return ""
}

// extractAudio returns the voice note payload, or empty when the message is
// not audio or the instance did not attach the media.
func extractAudio(env *webhookEnvelope) string {
	msg := env.Data.Message
	if msg == nil || msg.AudioMessage == nil {
		return ""
	}
	return env.Data.Base64
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
