package utils

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateCode_Shape(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		if len(code) != 6 {
			t.Fatalf("Expected 6 digit code, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("Code is not numeric: %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("Code out of range: %d", n)
		}
	}
}

func TestSessionTokens_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewSessionTokens("secret", "mealbox", 30*24*time.Hour, func() time.Time { return now })

	id := uuid.New()
	token, err := tokens.GenerateToken(id, "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.AccountUUID() != id {
		t.Errorf("Expected account %s, got %s", id, claims.AccountID)
	}
	if claims.Email != "a@b.com" {
		t.Errorf("Expected email a@b.com, got %s", claims.Email)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*24*time.Hour {
		t.Errorf("Expected 30 day lifetime, got %v", got)
	}
}

func TestSessionTokens_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := NewSessionTokens("secret", "mealbox", time.Hour, clock)

	token, err := tokens.GenerateToken(uuid.New(), "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	later := NewSessionTokens("secret", "mealbox", time.Hour, func() time.Time { return now.Add(2 * time.Hour) })
	if _, err := later.ParseToken(token); err == nil {
		t.Fatalf("Expected expired token to be rejected")
	}
}

func TestSessionTokens_WrongSecretOrIssuer(t *testing.T) {
	tokens := NewSessionTokens("secret", "mealbox", time.Hour, nil)
	token, err := tokens.GenerateToken(uuid.New(), "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewSessionTokens("other", "mealbox", time.Hour, nil).ParseToken(token); err == nil {
		t.Errorf("Expected token signed with another secret to be rejected")
	}
	if _, err := NewSessionTokens("secret", "someone-else", time.Hour, nil).ParseToken(token); err == nil {
		t.Errorf("Expected token from another issuer to be rejected")
	}
	if _, err := tokens.ParseToken("not-a-token"); err == nil {
		t.Errorf("Expected garbage token to be rejected")
	}
}

func TestCheckSecret(t *testing.T) {
	hash, err := HashSecret("operator-key")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if !CheckSecret(hash, "operator-key") {
		t.Errorf("Expected matching secret to pass")
	}
	if CheckSecret(hash, "wrong") || CheckSecret("", "operator-key") {
		t.Errorf("Expected mismatching secret to fail")
	}
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(3, 10)
	if pg.Offset != 20 {
		t.Errorf("Expected offset 20, got %d", pg.Offset)
	}
	pg = NewPagination(0, 1000)
	if pg.Page != 1 || pg.Limit != 100 {
		t.Errorf("Expected page 1 limit 100, got %+v", pg)
	}
}
