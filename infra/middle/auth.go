package middle

import (
	"context"
	"net/http"
	"strings"

	"github.com/commercekit/paybridge/infra/auth"
	"github.com/commercekit/paybridge/infra/response"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// AuthMiddleware validates JWT bearer tokens on the operator API
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "Authorization header required", nil)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Error(w, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>", nil)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				response.Error(w, http.StatusUnauthorized, "Token required", nil)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}

			ctx := context.WithValue(r.Context(), operatorContextKey, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperatorFromContext returns the authenticated operator, or empty string
func GetOperatorFromContext(ctx context.Context) string {
	if operator, ok := ctx.Value(operatorContextKey).(string); ok {
		return operator
	}
	return ""
}
