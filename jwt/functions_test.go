package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func TestCreateAndValidate(t *testing.T) {
	token, err := Create(Claims{ID: 7, Role: "security"}, secret, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	claims, err := Validate(token, secret)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.ID != 7 || claims.Role != "security" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != issuer {
		t.Fatalf("expected issuer %s, got %s", issuer, claims.Issuer)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := Create(Claims{ID: 1, Role: "admin"}, secret, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Validate(token, "other"); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateExpired(t *testing.T) {
	claims := Claims{ID: 1, Role: "admin"}
	claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(-time.Minute))
	token, err := Create(claims, secret, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Validate(token, secret); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestValidateRequiresExpiry(t *testing.T) {
	token, err := Create(Claims{ID: 1, Role: "admin"}, secret, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := Validate(token, secret); err == nil {
		t.Fatalf("expected error for token without exp")
	}
}

func TestEmptySecret(t *testing.T) {
	if _, err := Create(Claims{ID: 1}, "", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := Validate("a.b.c", ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestValidateGarbage(t *testing.T) {
	if _, err := Validate("not-a-token", secret); err == nil {
		t.Fatalf("expected parse error")
	}
}
