package auth

import (
	"errors"
	"testing"
	"time"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:   "test-secret",
		Duration: time.Hour,
		Issuer:   "test-issuer",
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())

	token, err := manager.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "user-123")
	}
	if claims.Username != "alice" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "alice")
	}
}

func TestTokenManager_VerifyExpired(t *testing.T) {
	config := testTokenConfig()
	config.Duration = -time.Minute
	manager := &TokenManager{config: config}

	token, err := manager.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify(expired) error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenManager_VerifyTampered(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())

	token, err := manager.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := manager.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(tampered) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_VerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager(testTokenConfig())
	verifier := NewTokenManager(TokenConfig{Secret: "other-secret", Duration: time.Hour})

	token, err := issuer.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(wrong secret) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_VerifyGarbage(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
