package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "ok", response["message"])
	})

	t.Run("nil data writes no body", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"backend": "echo"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	data := response.Data.(map[string]interface{})
	assert.Equal(t, "echo", data["backend"])
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()

	details := map[string]interface{}{"Messages": "Messages is required"}
	err := WriteBadRequest(w, "Validation failed", details)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "Validation failed", response.Message)
	assert.Equal(t, "Messages is required", response.Details["Messages"])
}

func TestWriteUnauthorized(t *testing.T) {
	t.Run("custom message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteUnauthorized(w, "Invalid token"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "unauthorized", response.Error)
		assert.Equal(t, "Invalid token", response.Message)
	})

	t.Run("default message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteUnauthorized(w, ""))

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Authentication required", response.Message)
	})
}

func TestWriteNotFound(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteNotFound(w, ""))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not_found", response.Error)
	assert.Equal(t, "Resource not found", response.Message)
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteInternalServerError(w, ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "internal_error", response.Error)
	assert.Equal(t, "Internal server error", response.Message)
}
