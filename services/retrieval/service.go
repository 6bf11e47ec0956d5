// Package retrieval fetches per-user context from an external collaborator
// under a hard time budget. Retrieval is strictly best-effort: timeout or
// failure yields empty context, never an error.
package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Retriever is the narrow collaborator interface for context lookup
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string) (string, error)
}

// Service wraps a Retriever with the time budget and minimum-length policy
type Service struct {
	retriever Retriever
	timeout   time.Duration
	minChars  int
	logger    *zap.Logger
}

// NewService creates a retrieval service. A nil retriever always yields
// empty context.
func NewService(retriever Retriever, timeout time.Duration, minChars int, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Service{
		retriever: retriever,
		timeout:   timeout,
		minChars:  minChars,
		logger:    logger,
	}
}

// Context returns retrieved context for the query, or empty when the
// collaborator is absent, slow, failing, or the result is too short to be
// worth injecting.
func (s *Service) Context(ctx context.Context, userID, query string) string {
	if s.retriever == nil {
		return ""
	}

	budgetCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := s.retriever.Retrieve(budgetCtx, userID, query)
		done <- outcome{text, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			s.logger.Debug("context retrieval failed", zap.Error(o.err))
			return ""
		}
		if len(o.text) < s.minChars {
			return ""
		}
		return o.text
	case <-budgetCtx.Done():
		s.logger.Debug("context retrieval timed out",
			zap.Duration("budget", s.timeout))
		return ""
	}
}
