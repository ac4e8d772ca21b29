package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/logging"
)

// whisperModel is OpenAI's speech-to-text model.
const whisperModel = "whisper-1"

// Whisper is a direct HTTP client for the OpenAI audio transcription
// endpoint. Voice notes arrive from the webhook as base64 OGG payloads.
type Whisper struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logging.Logger
}

// NewWhisper creates a transcription client.
// baseURL should be like "https://api.openai.com/v1".
func NewWhisper(baseURL, apiKey string, log *logging.Logger) *Whisper {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Whisper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log.Sub("transcribe"),
	}
}

// Transcribe decodes the payload and runs it through the transcription
// endpoint. Portuguese is forced: short voice notes carry too little signal
// for reliable language detection.
func (w *Whisper) Transcribe(ctx context.Context, audioBase64 string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio payload: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	form.WriteField("model", whisperModel)
	form.WriteField("language", "pt")
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	if w.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	w.log.Debug().Int("chars", len(text)).Msg("audio transcribed")
	return text, nil
}

var _ Transcriber = (*Whisper)(nil)
