package handlers

import (
	"net/http"
	"time"

	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/services/generation"
	"github.com/aeonforge/generation-engine/services/stream"
	"github.com/aeonforge/generation-engine/utils"
	"go.uber.org/zap"
)

// StreamHandler handles incremental generation requests
type StreamHandler struct {
	service           *generation.Service
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(service *generation.Service, heartbeatInterval time.Duration, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		service:           service,
		heartbeatInterval: heartbeatInterval,
		logger:            logger,
	}
}

// HandleStream handles POST /v1/chat/stream. The body is the same shape as
// the one-shot endpoint; the response is an event stream.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
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

	framer, err := stream.NewFramer(w)
	if err != nil {
		h.logger.Error("streaming unsupported by response writer",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Streaming not supported")
		return
	}
	framer.StartHeartbeat(ctx, h.heartbeatInterval)

	h.service.Stream(ctx, genReq, framer)

	h.logger.Info("stream finished",
		zap.String("request_id", requestID))
}
