package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthHandler_HandleHealth(t *testing.T) {
	h := NewHealthHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "healthy", envelope.Data.Status)
}

func TestHealthHandler_HandleReadiness(t *testing.T) {
	t.Run("no database is skipped, not unhealthy", func(t *testing.T) {
		h := NewHealthHandler(nil, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data HealthResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "healthy", envelope.Data.Status)
		assert.Equal(t, "skipped", envelope.Data.Checks["database"])
	})

	t.Run("healthy database", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		h := NewHealthHandler(db, zap.NewNop())
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing database flips readiness", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		h := NewHealthHandler(db, zap.NewNop())
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
