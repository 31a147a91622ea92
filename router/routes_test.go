package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/paybridge/infra/auth"
	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/provider"
)

func testServer(t *testing.T) (*httptest.Server, *auth.JWTService) {
	t.Helper()

	jwtService := auth.NewJWTService()
	svc := provider.NewPaymentService(provider.NewMemoryOrderStore(), nil, nil)

	r := chi.NewRouter()
	Routes(r, Deps{
		PaymentService: svc,
		GatewayConfig:  config.NewGatewayConfig(),
		JWTService:     jwtService,
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, jwtService
}

func TestHealthIsPublic(t *testing.T) {
	server, _ := testServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOperatorRoutesRequireAuth(t *testing.T) {
	server, _ := testServer(t)

	resp, err := http.Get(server.URL + "/v1/payments/gateways")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOperatorRoutesAcceptToken(t *testing.T) {
	server, jwtService := testServer(t)

	token, err := jwtService.GenerateToken("admin", "operator")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/payments/gateways", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCallbackRouteIsPublic(t *testing.T) {
	server, _ := testServer(t)

	// No gateway named "nope" is configured, so the handler answers 404
	// without demanding a bearer token.
	resp, err := http.Post(server.URL+"/callback/nope", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
