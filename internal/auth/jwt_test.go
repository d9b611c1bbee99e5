package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func TestGenerateAndValidateJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("quarry", "Quarry Operator")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.Username != "quarry" {
		t.Fatalf("expected username quarry, got %q", claims.Username)
	}
	if claims.DisplayName != "Quarry Operator" {
		t.Fatalf("expected display name to round-trip, got %q", claims.DisplayName)
	}
	if claims.Subject != "quarry" {
		t.Fatalf("expected subject to match username, got %q", claims.Subject)
	}
}

func TestGenerateJWT_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := GenerateJWT("quarry", ""); err == nil {
		t.Fatalf("expected error when JWT_SECRET is unset")
	}
}

func TestGenerateJWT_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := GenerateJWT("quarry", ""); err == nil {
		t.Fatalf("expected error for short JWT_SECRET")
	}
}

func TestValidateJWT_TamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("quarry", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part JWT, got %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := ValidateJWT(tampered); err == nil {
		t.Fatalf("expected tampered signature to be rejected")
	}
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	token, err := GenerateJWT("quarry", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	t.Setenv("JWT_SECRET", "another-secret-that-is-long-enough-98765")
	if _, err := ValidateJWT(token); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestValidateJWT_Expired(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	claims := Claims{
		Username: "quarry",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Subject:   "quarry",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign expired token: %v", err)
	}

	if _, err := ValidateJWT(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
