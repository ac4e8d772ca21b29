package messenger

import (
	"context"
	"sync"
)

// Sent records one delivered message.
type Sent struct {
	Recipient string
	Text      string
}

// Fake is an in-memory Messenger for tests.
type Fake struct {
	mu        sync.Mutex
	SentMsgs  []Sent
	Presences []string
	Err       error
}

var _ Messenger = (*Fake)(nil)

func (f *Fake) Send(_ context.Context, recipient, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.SentMsgs = append(f.SentMsgs, Sent{Recipient: recipient, Text: text})
	return nil
}

func (f *Fake) Presence(_ context.Context, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Presences = append(f.Presences, recipient)
	return nil
}

// Last returns the most recent message, or nil.
func (f *Fake) Last() *Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.SentMsgs) == 0 {
		return nil
	}
	s := f.SentMsgs[len(f.SentMsgs)-1]
	return &s
}
