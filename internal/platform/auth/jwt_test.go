package auth

import (
	"testing"
	"time"

	"hooksync/internal/platform/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testConfig())

	token, err := svc.GenerateAccessToken("usr_1", "admin", "admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "usr_1" || claims.Role != "admin" || claims.Email != "admin@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService(testConfig()).GenerateAccessToken("usr_1", "admin", "admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenService(config.JWTConfig{Secret: "different-secret", AccessTokenTTL: time.Minute})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected validation failure with a different secret")
	}
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	token, err := NewTokenService(cfg).GenerateAccessToken("usr_1", "admin", "admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewTokenService(testConfig()).ValidateToken(token); err == nil {
		t.Error("expected validation failure for an expired token")
	}
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	if _, err := NewTokenService(testConfig()).ValidateToken("not-a-token"); err == nil {
		t.Error("expected validation failure for malformed input")
	}
}
