package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/services/generation"
	"github.com/aeonforge/generation-engine/utils"
	"go.uber.org/zap"
)

// ChatRequest represents an inbound generation request
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Mode        string        `json:"mode,omitempty" validate:"omitempty,oneof=general long_form deliberative coding multilingual"`
	TargetWords int           `json:"target_words,omitempty" validate:"omitempty,gte=0,lte=20000"`
}

// ChatMessage represents a single chat message
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatResponse represents a completed generation
type ChatResponse struct {
	Text     string `json:"text"`
	Backend  string `json:"backend"`
	Profile  string `json:"profile"`
	Segments int    `json:"segments"`
	Created  int64  `json:"created"`
}

// ChatHandler handles one-shot generation requests
type ChatHandler struct {
	service *generation.Service
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service *generation.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	chatReq, ok := decodeChatRequest(w, r, h.logger)
	if !ok {
		return
	}

	genReq, ok := toGenerationRequest(chatReq, middleware.UserIDFromContext(ctx))
	if !ok {
		h.logger.Warn("request has no user message",
			zap.String("request_id", requestID))
		_ = utils.WriteBadRequest(w, "Last message must be from the user", nil)
		return
	}

	result := h.service.Complete(ctx, genReq)

	h.logger.Info("chat completed",
		zap.String("request_id", requestID),
		zap.String("backend", result.Backend),
		zap.String("profile", string(result.Profile)),
		zap.Int("segments", result.Segments))

	_ = utils.WriteOK(w, ChatResponse{
		Text:     result.Text,
		Backend:  result.Backend,
		Profile:  string(result.Profile),
		Segments: result.Segments,
		Created:  time.Now().Unix(),
	})
}

// decodeChatRequest parses and validates the shared chat request body
func decodeChatRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*ChatRequest, bool) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var chatReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		if utils.IsValidationError(err) {
			fields := make(map[string]interface{})
			for name, msg := range utils.GetValidationFields(err) {
				fields[name] = msg
			}
			_ = utils.WriteBadRequest(w, "Validation failed", fields)
		} else {
			_ = utils.WriteBadRequest(w, "Invalid request", nil)
		}
		return nil, false
	}

	return &chatReq, true
}

// toGenerationRequest splits the message list into history plus the trailing
// user turn the pipeline operates on
func toGenerationRequest(chatReq *ChatRequest, userID string) (*generation.Request, bool) {
	last := chatReq.Messages[len(chatReq.Messages)-1]
	if last.Role != string(models.RoleUser) {
		return nil, false
	}

	history := make([]models.Message, 0, len(chatReq.Messages)-1)
	for _, m := range chatReq.Messages[:len(chatReq.Messages)-1] {
		history = append(history, models.Message{
			Role:    models.Role(m.Role),
			Content: m.Content,
		})
	}

	return &generation.Request{
		UserID:      userID,
		History:     history,
		Text:        last.Content,
		Mode:        chatReq.Mode,
		TargetWords: chatReq.TargetWords,
	}, true
}
