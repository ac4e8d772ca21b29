// Package messenger delivers outbound WhatsApp messages through an
// Evolution API instance.
package messenger

import "context"

// Messenger sends messages and presence signals to a recipient identified
// by their WhatsApp JID or bare phone number.
type Messenger interface {
	// Send delivers a text message.
	Send(ctx context.Context, recipient, text string) error

	// Presence signals "typing..." to the recipient. Failures are
	// cosmetic; callers may ignore the error.
	Presence(ctx context.Context, recipient string) error
}
