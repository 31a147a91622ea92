package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/commercekit/paybridge/infra/auth"
	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/response"
)

// AuthHandler handles operator authentication requests
type AuthHandler struct {
	jwtService *auth.JWTService
	validate   *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(jwtService *auth.JWTService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		validate:   validate,
	}
}

// LoginRequest represents the login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse represents the login response structure
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// RefreshTokenRequest represents the refresh token request structure
type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Login authenticates the back-office operator against the configured
// credentials and issues a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	username := config.GetEnv("OPERATOR_USERNAME", "admin")
	password := config.GetEnv("OPERATOR_PASSWORD", "")
	if password == "" {
		response.Error(w, http.StatusServiceUnavailable, "Operator login is not configured", nil)
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(username)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) == 1
	if !usernameOK || !passwordOK {
		response.Error(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := h.jwtService.GenerateToken(username, "operator")
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Login failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(12 * time.Hour),
		Username:  username,
	})
}

// RefreshToken exchanges a valid token for a fresh one
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	token, err := h.jwtService.RefreshToken(req.Token)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Token refresh failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed", map[string]string{"token": token})
}
