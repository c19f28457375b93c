package auth

import (
	"testing"
	"time"
)

func newTestAuthenticator(accessTTL time.Duration) *Authenticator {
	return NewAuthenticator("access-secret", "refresh-secret", "socket-talk", accessTTL, time.Hour)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	auth := newTestAuthenticator(time.Hour)

	pair, err := auth.GenerateTokenPair(42, "alice@example.com")
	if err != nil {
		t.Fatalf("failed to generate token pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("generated token pair has empty token")
	}

	claims, err := auth.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("failed to validate access token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %s", claims.Email)
	}
	if claims.Issuer != "socket-talk" {
		t.Errorf("expected issuer socket-talk, got %s", claims.Issuer)
	}

	if _, err := auth.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Fatalf("failed to validate refresh token: %v", err)
	}
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	auth := newTestAuthenticator(time.Hour)

	pair, err := auth.GenerateTokenPair(1, "u@example.com")
	if err != nil {
		t.Fatalf("failed to generate token pair: %v", err)
	}

	// The two token kinds use different secrets, so they must not be
	// interchangeable.
	if _, err := auth.ValidateRefreshToken(pair.AccessToken); err == nil {
		t.Fatal("expected error validating access token as refresh token, got nil")
	}
	if _, err := auth.ValidateAccessToken(pair.RefreshToken); err == nil {
		t.Fatal("expected error validating refresh token as access token, got nil")
	}
}

func TestExpiredToken(t *testing.T) {
	auth := newTestAuthenticator(-time.Minute)

	pair, err := auth.GenerateTokenPair(1, "u@example.com")
	if err != nil {
		t.Fatalf("failed to generate token pair: %v", err)
	}

	_, err = auth.ValidateAccessToken(pair.AccessToken)
	if err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestInvalidSignature(t *testing.T) {
	auth1 := NewAuthenticator("secret1", "refresh1", "socket-talk", time.Hour, time.Hour)
	auth2 := NewAuthenticator("secret2", "refresh2", "socket-talk", time.Hour, time.Hour)

	pair, _ := auth1.GenerateTokenPair(1, "u@example.com")

	if _, err := auth2.ValidateAccessToken(pair.AccessToken); err == nil {
		t.Fatal("expected error for invalid signature, got nil")
	}
}
