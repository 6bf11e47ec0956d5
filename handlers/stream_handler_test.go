package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStreamHandler_HandleStream(t *testing.T) {
	h := NewStreamHandler(newEchoOnlyService(t), time.Minute, zap.NewNop())

	t.Run("full protocol over echo fallback", func(t *testing.T) {
		body, err := json.Marshal(ChatRequest{
			Messages: []ChatMessage{{Role: "user", Content: "outline the roadmap"}},
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleStream(rec, req)

		out := rec.Body.String()
		assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(out, ":ok\n\n"))
		assert.Contains(t, out, "event: status\ndata: retrieving\n\n")
		assert.Contains(t, out, "event: status\ndata: generating\n\n")
		assert.Contains(t, out, "outline the roadmap")
		assert.True(t, strings.HasSuffix(out, "event: status\ndata: done\n\n"))
	})

	t.Run("validation failures stay plain JSON", func(t *testing.T) {
		body, err := json.Marshal(ChatRequest{Messages: []ChatMessage{}})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleStream(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}
