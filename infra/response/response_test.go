package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusAccepted, map[string]string{"order_id": "o-1"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"order_id":"o-1"}`, rec.Body.String())
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, "order registered", map[string]string{"order_id": "o-1"})

	resp := decode(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "order registered", resp.Message)
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestErrorWithCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "order not found", errors.New("no rows"))

	resp := decode(t, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "order not found", resp.Message)
	assert.Equal(t, "no rows", resp.Error)
}

func TestErrorWithoutCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusUnauthorized, "Invalid token", nil)

	resp := decode(t, rec)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.NotContains(t, rec.Body.String(), `"error"`)
}
