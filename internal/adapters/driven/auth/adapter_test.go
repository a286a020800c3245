package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

func newTestAdapter() *Adapter {
	// MinCost keeps the tests fast
	return NewAdapterWithCost("test-secret", bcrypt.MinCost)
}

func testClaims(expiresAt time.Time) *domain.AccessClaims {
	return &domain.AccessClaims{
		Subject:   "admin-client",
		Scopes:    []string{domain.ScopeUserRead, domain.ScopeUserWrite},
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	a := newTestAdapter()

	hash, err := a.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error hashing: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("expected hash to differ from plaintext")
	}

	if !a.VerifyPassword("correct horse battery staple", hash) {
		t.Error("expected correct password to verify")
	}
	if a.VerifyPassword("wrong password", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	a := newTestAdapter()

	token, err := a.GenerateToken(testClaims(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}

	claims, err := a.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.Subject != "admin-client" {
		t.Errorf("expected subject admin-client, got %q", claims.Subject)
	}
	if !claims.HasScope(domain.ScopeUserRead) || !claims.HasScope(domain.ScopeUserWrite) {
		t.Errorf("expected both scopes, got %v", claims.Scopes)
	}
	if claims.HasScope("something:else") {
		t.Error("expected unknown scope to be absent")
	}
}

func TestParseToken_Expired(t *testing.T) {
	a := newTestAdapter()

	token, err := a.GenerateToken(testClaims(time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}

	if _, err := a.ParseToken(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	a := newTestAdapter()
	other := NewAdapterWithCost("other-secret", bcrypt.MinCost)

	token, err := other.GenerateToken(testClaims(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}

	if _, err := a.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	a := newTestAdapter()

	if _, err := a.ParseToken("not.a.token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
