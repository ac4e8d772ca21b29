// Package transcribe turns WhatsApp voice notes into text.
package transcribe

import "context"

// Transcriber converts a base64-encoded audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64 string) (string, error)
}
