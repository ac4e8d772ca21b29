// Package decider abstracts the decision-maker that turns a conversation
// transcript into the next action: either a direct text reply or a named
// operation with arguments. The production implementation talks to an
// OpenAI-compatible chat-completions endpoint; tests use the scripted mock.
package decider

import (
	"context"

	"github.com/dpereira/agendai/internal/domain"
)

// OperationDef describes an operation the decision-maker may select.
// Schema is a JSON Schema string for the operation's arguments.
type OperationDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
}

// Request is the input to a Decide call.
type Request struct {
	System     string           `json:"system"`
	Transcript []domain.Message `json:"transcript"`
	Operations []OperationDef   `json:"operations,omitempty"`
}

// Decision is a single decision: exactly one of Operation or Text is
// meaningful. CorrelationID ties the decision to the tool result that
// answers it in the transcript.
type Decision struct {
	CorrelationID string         `json:"correlationId"`
	Operation     string         `json:"operation,omitempty"`
	Args          map[string]any `json:"args,omitempty"`
	Text          string         `json:"text,omitempty"`
}

// IsOperation reports whether the decision selects an operation rather
// than a direct reply.
func (d *Decision) IsOperation() bool {
	return d.Operation != ""
}

// Decider is the interface all decision-maker providers implement.
type Decider interface {
	// Decide returns the next action for the given transcript.
	Decide(ctx context.Context, req Request) (*Decision, error)

	// Name returns the provider name (e.g. "openai", "mock").
	Name() string
}
