package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/logging"
)

// sendDelayMs is passed to the Evolution API so the message lands after a
// short, human-looking typing pause.
const sendDelayMs = 1200

// Evolution is an HTTP client for an Evolution API instance.
type Evolution struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
	log      *logging.Logger
}

// NewEvolution creates a messenger bound to one Evolution API instance.
func NewEvolution(baseURL, apiKey, instance string, log *logging.Logger) *Evolution {
	return &Evolution{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.Sub("evolution"),
	}
}

// Send delivers a text message via POST /message/sendText/{instance}.
func (e *Evolution) Send(ctx context.Context, recipient, text string) error {
	body := map[string]any{
		"number":      recipient,
		"text":        text,
		"delay":       sendDelayMs,
		"linkPreview": true,
	}
	if err := e.post(ctx, fmt.Sprintf("/message/sendText/%s", e.instance), body); err != nil {
		return fmt.Errorf("sending message to %s: %w", recipient, err)
	}
	e.log.Debug().Str("recipient", recipient).Int("chars", len(text)).Msg("message sent")
	return nil
}

// Presence signals "composing" via POST /chat/sendPresence/{instance}.
func (e *Evolution) Presence(ctx context.Context, recipient string) error {
	body := map[string]any{
		"number":   recipient,
		"presence": "composing",
		"delay":    sendDelayMs,
	}
	if err := e.post(ctx, fmt.Sprintf("/chat/sendPresence/%s", e.instance), body); err != nil {
		e.log.Warn().Err(err).Str("recipient", recipient).Msg("presence failed")
		return err
	}
	return nil
}

func (e *Evolution) post(ctx context.Context, path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
