package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "hooksync/internal/api/context"
	"hooksync/internal/pkg/errors"
	"hooksync/internal/platform/auth"
)

// AuthMiddleware resolves the bearer token into claims and stores them in the
// request context. Inbound provider deliveries bypass this entirely; they
// authenticate with the per-resource secret instead.
type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing or malformed bearer token", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(raw)
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}
