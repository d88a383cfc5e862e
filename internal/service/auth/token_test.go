package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	claims := m.Verify(token)
	if claims == nil {
		t.Fatal("expected valid claims")
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp to be set")
	}
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	if claims := m.Verify(token); claims != nil {
		t.Fatal("expected expired token to verify as nil")
	}
}

func TestTokenTampered(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	token, err := m.Issue("user-1", "a@x.com")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	if claims := m.Verify(token + "x"); claims != nil {
		t.Fatal("expected tampered token to verify as nil")
	}

	other := NewTokenManager("different-secret", time.Minute)
	if claims := other.Verify(token); claims != nil {
		t.Fatal("expected token signed with another secret to verify as nil")
	}
}

func TestTokenMalformed(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if claims := m.Verify(token); claims != nil {
			t.Fatalf("expected malformed token %q to verify as nil", token)
		}
	}
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword err: %v", err)
	}
	second, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword err: %v", err)
	}
	if first == second {
		t.Fatal("expected salted hashes to differ")
	}

	if !CheckPassword("hunter2", first) {
		t.Fatal("expected password to verify")
	}
	if CheckPassword("wrong", first) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("hunter2", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to fail verification")
	}
}
