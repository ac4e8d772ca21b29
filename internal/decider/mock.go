package decider

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Mock is a scripted test double for Decider. Each Decide call consumes the
// next scripted decision; when the script runs out, DecideFunc (if set) takes
// over, otherwise a canned text reply is returned.
type Mock struct {
	ProviderName string
	Script       []Decision
	DecideFunc   func(ctx context.Context, req Request) (*Decision, error)

	mu       sync.Mutex
	Calls    []Request
	position int
}

func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *Mock) Decide(ctx context.Context, req Request) (*Decision, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)

	if m.position < len(m.Script) {
		d := m.Script[m.position]
		m.position++
		m.mu.Unlock()
		if d.CorrelationID == "" {
			d.CorrelationID = uuid.NewString()
		}
		return &d, nil
	}
	m.mu.Unlock()

	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, req)
	}
	return &Decision{CorrelationID: uuid.NewString(), Text: "mock reply"}, nil
}
