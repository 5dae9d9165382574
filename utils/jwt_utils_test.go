package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("a-very-long-test-secret", time.Hour)

	token, err := m.GenerateToken("64b7f0c2a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got: %v", err)
	}
	if claims.UserID != "64b7f0c2a1b2c3d4e5f60718" {
		t.Errorf("unexpected user id: %s", claims.UserID)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("a-very-long-test-secret", time.Hour)

	expired, _ := NewTokenManager("a-very-long-test-secret", -time.Minute).GenerateToken("u1")
	foreign, _ := NewTokenManager("another-long-test-secret", time.Hour).GenerateToken("u1")
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u1"}).
		SignedString([]byte("a-very-long-test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got: %v", err)
			}
		})
	}
}
