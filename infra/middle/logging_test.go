package middle

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLoggingMiddlewareAssignsRequestID(t *testing.T) {
	handler := RequestLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestLoggingMiddlewareKeepsRequestID(t *testing.T) {
	handler := RequestLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestExtractGatewayFromURL(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/callback/ogone", want: "ogone"},
		{path: "/v1/payments/buckaroo/order-1/refund", want: "buckaroo"},
		{path: "/v1/payments/gateways", want: "gateways"},
		{path: "/health", want: ""},
		{path: "/", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractGatewayFromURL(tt.path), tt.path)
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	handler := PanicRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback/ogone", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "boom")
}
