package decider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dpereira/agendai/internal/domain"
)

// OpenAIDecider is a direct HTTP client for any OpenAI-compatible
// chat-completions endpoint. Operation selection rides on the standard
// tool-calling protocol.
type OpenAIDecider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIDecider creates a chat-completions decider.
// baseURL should be like "https://api.openai.com/v1".
func NewOpenAIDecider(baseURL, apiKey, model string) *OpenAIDecider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OpenAIDecider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (o *OpenAIDecider) Name() string { return "openai" }

// Decide sends the transcript as a chat-completions request and maps the
// first choice back to a Decision. A tool call wins over message content
// when both are present.
func (o *OpenAIDecider) Decide(ctx context.Context, req Request) (*Decision, error) {
	body := chatRequest{
		Model:    o.model,
		Messages: o.buildMessages(req),
		Tools:    o.buildTools(req.Operations),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/chat/completions", o.baseURL), strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", o.model)
	}

	return o.toDecision(result.Choices[0].Message)
}

func (o *OpenAIDecider) buildMessages(req Request) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.Transcript)+1)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Transcript {
		role := m.Role
		if role == domain.RoleTool {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	return msgs
}

func (o *OpenAIDecider) buildTools(ops []OperationDef) []chatTool {
	if len(ops) == 0 {
		return nil
	}
	tools := make([]chatTool, 0, len(ops))
	for _, op := range ops {
		schema := json.RawMessage(op.Schema)
		if op.Schema == "" {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		tools = append(tools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        op.Name,
				Description: op.Description,
				Parameters:  schema,
			},
		})
	}
	return tools
}

func (o *OpenAIDecider) toDecision(msg chatResponseMessage) (*Decision, error) {
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments for %s: %w", call.Function.Name, err)
			}
		}
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		return &Decision{
			CorrelationID: id,
			Operation:     call.Function.Name,
			Args:          args,
		}, nil
	}

	return &Decision{
		CorrelationID: uuid.NewString(),
		Text:          strings.TrimSpace(msg.Content),
	}, nil
}

// Wire structures for the chat-completions protocol.

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message chatResponseMessage `json:"message"`
	} `json:"choices"`
}

type chatResponseMessage struct {
	Content   string `json:"content"`
	ToolCalls []struct {
		ID       string `json:"id"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls"`
}
