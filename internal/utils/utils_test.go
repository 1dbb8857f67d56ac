package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "ADMIN", 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v (%v)", claims, err)
	}
	if _, err := ParseAccessToken("other", tok.Token); err == nil {
		t.Fatalf("wrong secret must fail")
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 1, "CUSTOMER", -1)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken("s3cret", tok.Token); err == nil {
		t.Fatalf("expired token must fail")
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(a.Raw) != 96 {
		t.Fatalf("expected 96 hex chars, got %d", len(a.Raw))
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || len(HashRefreshRaw(a.Raw)) != 64 {
		t.Fatalf("hash must be stable sha256 hex")
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("pw", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(h, "pw") || VerifyPassword(h, "nope") {
		t.Fatalf("verify mismatch")
	}
}

func TestVerifyPasswordEmptyHashNeverMatches(t *testing.T) {
	if VerifyPassword("", "unknown-user") || VerifyPassword("", "") {
		t.Fatalf("empty hash must never match")
	}
}
