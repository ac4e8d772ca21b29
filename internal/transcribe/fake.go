package transcribe

import "context"

// Fake is a scripted Transcriber for tests.
type Fake struct {
	Text string
	Err  error

	// Calls records every payload passed in.
	Calls []string
}

func (f *Fake) Transcribe(_ context.Context, audioBase64 string) (string, error) {
	f.Calls = append(f.Calls, audioBase64)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

var _ Transcriber = (*Fake)(nil)
