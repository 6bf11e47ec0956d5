package providers

import (
	"context"
	"sync"

	"github.com/aeonforge/generation-engine/models"
)

// Request is a unified generation request handed to any backend client
type Request struct {
	// Model is the backend-specific model id
	Model string

	// System carries the system instructions
	System string

	// History is the visible conversation so far
	History []models.Message

	// UserText is the new user turn
	UserText string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness
	Temperature float64

	// TopP controls nucleus sampling
	TopP float64
}

// Result is the uniform outcome of a one-shot call, or the terminal summary
// of a streaming call. Token counts of zero mean the backend did not report
// usage and the caller should estimate.
type Result struct {
	Success   bool
	Text      string
	Backend   string
	Model     string
	TokensIn  int
	TokensOut int
}

// Stream carries incremental output from a backend after the connection was
// accepted. Chunks closes when the source ends; Err reports any mid-stream
// failure after that, which the framer surfaces rather than retrying because
// partial output may already be visible.
type Stream struct {
	Backend string
	Model   string
	Chunks  <-chan string

	mu  sync.Mutex
	err error
}

// NewStream creates a stream over the given chunk channel
func NewStream(backend, model string, chunks <-chan string) *Stream {
	return &Stream{Backend: backend, Model: model, Chunks: chunks}
}

// SetErr records a mid-stream failure; call before closing Chunks
func (s *Stream) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Err returns the mid-stream failure, if any. Valid once Chunks is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Client is the uniform contract every generation backend implements.
// The cascade depends only on this interface, never on a concrete variant.
type Client interface {
	// Name returns the backend family name ("remote", "local", "echo")
	Name() string

	// Generate performs a one-shot generation call
	Generate(ctx context.Context, req *Request) (*Result, error)

	// GenerateStream starts a streaming generation. A non-nil error means the
	// request was never accepted and the caller may retry another candidate;
	// after a successful return, failures surface via Stream.Err only.
	GenerateStream(ctx context.Context, req *Request) (*Stream, error)
}
