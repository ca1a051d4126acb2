package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "hooksync/internal/api/context"
	"hooksync/internal/platform/auth"
	"hooksync/internal/platform/config"
)

func testTokenService() *auth.TokenService {
	return auth.NewTokenService(config.JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokenSvc := testTokenService()
	token, err := tokenSvc.GenerateAccessToken("usr_1", "admin", "admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var gotClaims *auth.Claims
	handler := NewAuthMiddleware(tokenSvc).Handle(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = r.Context().Value(apiContext.Claims).(*auth.Claims)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/webhooks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotClaims == nil || gotClaims.UserID != "usr_1" {
		t.Errorf("expected claims in context, got %+v", gotClaims)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	handler := NewAuthMiddleware(testTokenService()).Handle(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without valid auth")
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer token", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/webhooks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}
