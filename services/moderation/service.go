// Package moderation gates generation on a safety classification of the
// user's raw text. The classifier is an external collaborator; its failure
// yields allow-by-default unless the gate is configured fail-closed.
package moderation

import (
	"context"
	"strings"

	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/services/providers"
	"go.uber.org/zap"
)

// SafeReply is the fixed response streamed in place of generation when the
// gate blocks a request.
const SafeReply = "I can't help with that. If you want, I can provide a safer alternative or general information."

// defaultGuardModel is the moderation model used when none is configured
const defaultGuardModel = "meta-llama/Llama-Guard-3-8B"

// guardSystemPrompt frames the guard model as a binary classifier
const guardSystemPrompt = "You are a safety classifier. Reply with 'ALLOW' or 'BLOCK' only."

// Decision is the gate's verdict
type Decision struct {
	Allowed bool
}

// Service wraps the guard-model collaborator with the fail-open policy
type Service struct {
	client     providers.Client
	guardModel string
	failClosed bool
	logger     *zap.Logger
}

// NewService creates a moderation gate. A nil client disables remote
// classification entirely, which allows everything (or blocks everything
// under fail-closed).
func NewService(client providers.Client, guardModel string, failClosed bool, logger *zap.Logger) *Service {
	if guardModel == "" {
		guardModel = defaultGuardModel
	}
	return &Service{
		client:     client,
		guardModel: guardModel,
		failClosed: failClosed,
		logger:     logger,
	}
}

// Check classifies the user's raw text. Collaborator failure fails open
// (allow) by default; an administrator may invert this to fail-closed.
func (s *Service) Check(ctx context.Context, text string) Decision {
	if s.client == nil {
		return s.onFailure("moderation client not configured", nil)
	}

	result, err := s.client.Generate(ctx, &providers.Request{
		Model:       s.guardModel,
		System:      guardSystemPrompt,
		UserText:    text,
		Temperature: 0.0,
		MaxTokens:   8,
	})
	if err != nil {
		return s.onFailure("moderation call failed", err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(result.Text))
	return Decision{Allowed: strings.HasPrefix(verdict, "ALLOW")}
}

// SafeReplyMessage returns the safe reply as an assistant message
func SafeReplyMessage() models.Message {
	return models.Message{Role: models.RoleAssistant, Content: SafeReply}
}

func (s *Service) onFailure(msg string, err error) Decision {
	if err != nil {
		s.logger.Warn(msg, zap.Error(err), zap.Bool("fail_closed", s.failClosed))
	} else {
		s.logger.Debug(msg, zap.Bool("fail_closed", s.failClosed))
	}
	return Decision{Allowed: !s.failClosed}
}
