package decider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/agendai/internal/domain"
)

func TestDecisionIsOperation(t *testing.T) {
	op := &Decision{Operation: "check_availability"}
	assert.True(t, op.IsOperation())

	text := &Decision{Text: "Olá!"}
	assert.False(t, text.IsOperation())
}

func TestMockScriptConsumption(t *testing.T) {
	m := &Mock{Script: []Decision{
		{Operation: "check_availability", Args: map[string]any{"period": "manhã"}},
		{Text: "Pronto!"},
	}}

	d1, err := m.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "check_availability", d1.Operation)
	assert.NotEmpty(t, d1.CorrelationID)

	d2, err := m.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "Pronto!", d2.Text)

	// Script exhausted: canned reply.
	d3, err := m.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "mock reply", d3.Text)

	assert.Len(t, m.Calls, 3)
}

func TestOpenAIDecide_TextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Bom dia! Como posso ajudar?"}}]}`))
	}))
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "test-key", "gpt-4o-mini")
	dec, err := d.Decide(context.Background(), Request{
		System: "Você é a assistente da clínica.",
		Transcript: []domain.Message{
			{Role: domain.RoleUser, Content: "Bom dia"},
		},
	})
	require.NoError(t, err)
	assert.False(t, dec.IsOperation())
	assert.Equal(t, "Bom dia! Como posso ajudar?", dec.Text)
	assert.NotEmpty(t, dec.CorrelationID)
}

func TestOpenAIDecide_ToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "check_availability", req.Tools[0].Function.Name)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"id":"call_1","function":{"name":"check_availability","arguments":"{\"period\":\"tarde\"}"}}]}}]}`))
	}))
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "", "gpt-4o-mini")
	dec, err := d.Decide(context.Background(), Request{
		Transcript: []domain.Message{{Role: domain.RoleUser, Content: "tem horário à tarde?"}},
		Operations: []OperationDef{{
			Name:        "check_availability",
			Description: "Lista horários livres",
			Schema:      `{"type":"object","properties":{"period":{"type":"string"}}}`,
		}},
	})
	require.NoError(t, err)
	assert.True(t, dec.IsOperation())
	assert.Equal(t, "check_availability", dec.Operation)
	assert.Equal(t, "tarde", dec.Args["period"])
	assert.Equal(t, "call_1", dec.CorrelationID)
}

func TestOpenAIDecide_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "k", "m")
	_, err := d.Decide(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIDecide_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "k", "m")
	_, err := d.Decide(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
