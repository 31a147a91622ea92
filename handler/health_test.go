package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealth(t *testing.T) {
	h := NewHealthHandler(&mockPaymentService{gateways: []string{"buckaroo", "mollie"}}, true)

	rec := httptest.NewRecorder()
	h.CheckHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.EventsEnabled)
	assert.Equal(t, []string{"buckaroo", "mollie"}, health.Gateways)
	assert.Positive(t, health.GoRoutines)
}

func TestCheckHealthDegradedWithoutGateways(t *testing.T) {
	h := NewHealthHandler(&mockPaymentService{}, false)

	rec := httptest.NewRecorder()
	h.CheckHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
