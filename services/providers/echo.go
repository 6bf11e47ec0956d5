package providers

import (
	"context"
	"strings"
)

// EchoBackend is the backend family name of the terminal fallback
const EchoBackend = "echo"

// Echo is the deterministic, cost-free terminal client. It never fails, so a
// generation request can never dead-end even when every real backend is down
// or no credentials are configured.
type Echo struct{}

// NewEcho creates the echo fallback client
func NewEcho() *Echo {
	return &Echo{}
}

// Name returns the backend family name
func (e *Echo) Name() string {
	return EchoBackend
}

// Generate synthesizes a deterministic response from the input
func (e *Echo) Generate(_ context.Context, req *Request) (*Result, error) {
	return &Result{
		Success: true,
		Text:    echoText(req.UserText),
		Backend: EchoBackend,
	}, nil
}

// GenerateStream yields the echo response as a single chunk
func (e *Echo) GenerateStream(_ context.Context, req *Request) (*Stream, error) {
	chunks := make(chan string, 1)
	chunks <- echoText(req.UserText)
	close(chunks)
	return NewStream(EchoBackend, "", chunks), nil
}

func echoText(userText string) string {
	return "Let me outline the approach:\n\n" + strings.TrimSpace(userText)
}
