package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestValidateToken(t *testing.T) {
	tenant := uuid.New()
	valid, err := GenerateToken("secret", tenant, "user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, _ := GenerateToken("secret", tenant, "user-1", RoleAdmin, -time.Minute)
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID:         tenant.String(),
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{"Given valid token Then identity", valid, "secret", nil},
		{"Given wrong secret Then invalid", valid, "other", ErrInvalidToken},
		{"Given expired token Then invalid", expired, "secret", ErrInvalidToken},
		{"Given refresh token Then wrong type", refresh, "secret", ErrWrongType},
		{"Given empty secret Then invalid", valid, "", ErrInvalidToken},
		{"Given garbage Then invalid", "not.a.token", "secret", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ValidateToken(tt.token, tt.secret)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if id.TenantID != tenant || id.UserID != "user-1" || !id.IsAdmin() {
				t.Errorf("unexpected identity %+v", id)
			}
		})
	}
}
