package auth

import (
	"strings"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Error("CheckPassword() with right password = false")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword() with wrong password = true")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager("unit-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	token, err := m.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	subject, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "user-42" {
		t.Errorf("Verify() = %q, want user-42", subject)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer, _ := NewTokenManager("secret-a", time.Hour)
	verifier, _ := NewTokenManager("secret-b", time.Hour)
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("Verify() with wrong secret error = nil, want error")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)
	if _, err := m.Verify("not.a.jwt"); err == nil {
		t.Fatal("Verify() of garbage error = nil, want error")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := &TokenManager{secret: []byte("secret"), ttl: -time.Minute}
	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	_, err = m.Verify(token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("Verify() of expired token error = %v, want expiry error", err)
	}
}

func TestNewTokenManagerEmptySecret(t *testing.T) {
	if _, err := NewTokenManager("  ", time.Hour); err == nil {
		t.Fatal("NewTokenManager() with empty secret error = nil, want error")
	}
}
