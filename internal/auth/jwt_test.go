package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/kalcki/internal/model"
)

var grower = &model.User{ID: 7, Username: "grower", Role: model.RoleGrower}

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens("test-secret-key", time.Hour)

	token, err := tokens.Issue(grower)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "grower" || claims.Role != model.RoleGrower {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != Issuer || claims.Subject != "7" || claims.ID == "" {
		t.Errorf("unexpected registered claims: %+v", claims.RegisteredClaims)
	}

	diff := time.Until(claims.ExpiresAt.Time) - time.Hour
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from configured TTL: diff=%v", diff)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	tokens := NewTokens("secret", 0)
	a, _ := tokens.Issue(grower)
	b, _ := tokens.Issue(grower)

	ca, _ := tokens.Validate(a)
	cb, _ := tokens.Validate(b)
	if ca.ID == cb.ID {
		t.Error("expected distinct token IDs")
	}
	if tokens.TTL() != DefaultTTL {
		t.Errorf("expected default TTL, got %v", tokens.TTL())
	}
}

func TestValidateRejects(t *testing.T) {
	tokens := NewTokens("secret1", time.Hour)
	valid, _ := tokens.Issue(grower)
	otherSecret, _ := NewTokens("secret2", time.Hour).Issue(grower)

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret1"))

	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "y",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret1"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", otherSecret},
		{"expired", expired},
		{"wrong issuer", foreign},
		{"tampered", tamper(valid)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

// tamper changes the first signature character.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := byte('A')
	if token[i] == 'A' {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}
