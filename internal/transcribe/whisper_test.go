package transcribe

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/agendai/internal/logging"
)

func TestWhisperTranscribe(t *testing.T) {
	audio := []byte("fake-ogg-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.ogg", header.Filename)
		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, audio, got)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": " Quero marcar uma consulta. "}`))
	}))
	defer srv.Close()

	w := NewWhisper(srv.URL, "test-key", logging.Silent())
	text, err := w.Transcribe(context.Background(), base64.StdEncoding.EncodeToString(audio))
	require.NoError(t, err)
	assert.Equal(t, "Quero marcar uma consulta.", text)
}

func TestWhisperTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid audio"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWhisper(srv.URL, "test-key", logging.Silent())
	_, err := w.Transcribe(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (400)")
}

func TestWhisperTranscribe_BadBase64(t *testing.T) {
	w := NewWhisper("http://127.0.0.1:0", "test-key", logging.Silent())
	_, err := w.Transcribe(context.Background(), "not base64 at all!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode audio payload")
}
