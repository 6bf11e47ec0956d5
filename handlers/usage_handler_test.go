package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/utils"
)

// stubLogRepo serves canned ledger rows and records the query it received
type stubLogRepo struct {
	logs      []*models.RequestLog
	err       error
	gotUserID string
	gotLimit  int
}

func (r *stubLogRepo) Insert(ctx context.Context, log *models.RequestLog) error {
	return nil
}

func (r *stubLogRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.RequestLog, error) {
	r.gotUserID = userID
	r.gotLimit = limit
	return r.logs, r.err
}

func usageRequest(t *testing.T, target, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		ctx := middleware.WithClaims(req.Context(), &middleware.Claims{Sub: userID})
		req = req.WithContext(ctx)
	}
	return req
}

func decodeUsage(t *testing.T, w *httptest.ResponseRecorder) UsageResponse {
	t.Helper()
	var envelope struct {
		Data UsageResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	return envelope.Data
}

func TestUsageHandler_HandleUsage(t *testing.T) {
	now := time.Now().UTC()

	t.Run("returns entries and total cost", func(t *testing.T) {
		repo := &stubLogRepo{logs: []*models.RequestLog{
			{ID: uuid.New(), UserID: "u1", Backend: "cloud", TokensIn: 100, TokensOut: 400, CostUSD: 0.0012, LatencyMs: 820, Success: true, CreatedAt: now},
			{ID: uuid.New(), UserID: "u1", Backend: "echo", Success: true, CreatedAt: now.Add(-time.Minute)},
		}}
		h := NewUsageHandler(repo, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage", "u1"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", repo.gotUserID)
		assert.Equal(t, 50, repo.gotLimit)

		response := decodeUsage(t, w)
		require.Len(t, response.Entries, 2)
		assert.Equal(t, "cloud", response.Entries[0].Backend)
		assert.Equal(t, 400, response.Entries[0].TokensOut)
		assert.InDelta(t, 0.0012, response.TotalCostUSD, 1e-9)
	})

	t.Run("limit parameter honored and capped", func(t *testing.T) {
		repo := &stubLogRepo{}
		h := NewUsageHandler(repo, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage?limit=10", "u1"))
		assert.Equal(t, 10, repo.gotLimit)

		w = httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage?limit=5000", "u1"))
		assert.Equal(t, 200, repo.gotLimit)
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		h := NewUsageHandler(&stubLogRepo{}, zap.NewNop())

		for _, raw := range []string{"abc", "0", "-5"} {
			w := httptest.NewRecorder()
			h.HandleUsage(w, usageRequest(t, "/v1/usage?limit="+raw, "u1"))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	})

	t.Run("missing claims rejected", func(t *testing.T) {
		h := NewUsageHandler(&stubLogRepo{}, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage", ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("nil repository serves empty history", func(t *testing.T) {
		h := NewUsageHandler(nil, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage", "u1"))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeUsage(t, w)
		assert.Empty(t, response.Entries)
		assert.Zero(t, response.TotalCostUSD)
	})

	t.Run("repository failure yields 500", func(t *testing.T) {
		repo := &stubLogRepo{err: errors.New("db down")}
		h := NewUsageHandler(repo, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUsage(w, usageRequest(t, "/v1/usage", "u1"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "internal_error", response.Error)
	})
}
