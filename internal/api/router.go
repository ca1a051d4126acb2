package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "hooksync/internal/api/context"
	"hooksync/internal/api/handlers"
	"hooksync/internal/api/middleware"
	"hooksync/internal/pkg/errors"
	"hooksync/internal/platform/auth"
)

type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	WebhookHandler *handlers.WebhookHandler
	EventsHandler  *handlers.EventsHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Handle))

	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))

	// Inbound provider deliveries authenticate with the per-resource secret
	// token, not a bearer token.
	router.POST("/api/v1/events/gitlab", wrap(deps.EventsHandler.HandleGitLab))

	authMid := deps.AuthMiddleware
	rl := deps.RateLimiter

	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, authMid.Handle, rl.Limit("api_read")))
	router.GET("/api/v1/webhooks/:resource_type/:resource_id",
		chain(deps.WebhookHandler.Get, authMid.Handle, rl.Limit("api_read")))
	router.POST("/api/v1/webhooks/:resource_type/:resource_id/reinstall",
		chain(deps.WebhookHandler.Reinstall, authMid.Handle, requireRole("admin", "owner"), rl.Limit("api_write")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if !ok {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing credentials", nil)
				return
			}

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
