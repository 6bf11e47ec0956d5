package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aeonforge/generation-engine/config"
	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/services/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(serverURL string) *Adapter {
	return NewAdapter(config.LocalConfig{
		BaseURL: serverURL,
		Model:   "configured-default",
	}, zap.NewNop())
}

func TestAdapter_Generate(t *testing.T) {
	t.Run("success with token counts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, false, body["stream"])

			_, _ = w.Write([]byte(`{"response":"local answer","done":true,"prompt_eval_count":9,"eval_count":21}`))
		}))
		defer server.Close()

		a := newTestAdapter(server.URL)
		result, err := a.Generate(context.Background(), &providers.Request{Model: "tinyllama", UserText: "q"})

		require.NoError(t, err)
		assert.Equal(t, "local answer", result.Text)
		assert.Equal(t, Backend, result.Backend)
		assert.Equal(t, "tinyllama", result.Model)
		assert.Equal(t, 9, result.TokensIn)
		assert.Equal(t, 21, result.TokensOut)
	})

	t.Run("empty request model falls back to configured model", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "configured-default", body["model"])
			_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
		}))
		defer server.Close()

		a := newTestAdapter(server.URL)
		result, err := a.Generate(context.Background(), &providers.Request{UserText: "q"})
		require.NoError(t, err)
		assert.Equal(t, "configured-default", result.Model)
	})

	t.Run("server error is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusInternalServerError)
		}))
		defer server.Close()

		a := newTestAdapter(server.URL)
		_, err := a.Generate(context.Background(), &providers.Request{UserText: "q"})

		require.Error(t, err)
		assert.True(t, providers.IsRetryable(err))
	})
}

func TestAdapter_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"stream ","done":false}` + "\n"))
		_, _ = w.Write([]byte("not json\n"))
		_, _ = w.Write([]byte(`{"response":"ing","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer server.Close()

	a := newTestAdapter(server.URL)
	stream, err := a.GenerateStream(context.Background(), &providers.Request{UserText: "q"})
	require.NoError(t, err)

	var got string
	for chunk := range stream.Chunks {
		got += chunk
	}
	assert.Equal(t, "stream ing", got)
	assert.NoError(t, stream.Err())
}

func TestFlattenPrompt(t *testing.T) {
	got := flattenPrompt(&providers.Request{
		System:   "be terse",
		History:  []models.Message{{Role: models.RoleUser, Content: "hi"}, {Role: models.RoleAssistant, Content: "hello"}},
		UserText: "now what",
	})

	assert.Equal(t, "be terse\n\nuser: hi\nassistant: hello\nuser: now what\nassistant:", got)
}
