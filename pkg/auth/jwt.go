package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types
const (
	TokenTypeAccess = "access"
)

// Staff roles
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("token is not an access token")
)

// Claims are the access token claims issued to tenant staff
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller extracted from a token
type Identity struct {
	TenantID uuid.UUID
	UserID   string
	Role     string
}

// IsAdmin reports whether the caller may perform operator actions
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleOwner
}

// GenerateToken issues an HS256 access token
func GenerateToken(secret string, tenantID uuid.UUID, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID.String(),
		Role:     role,
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateToken verifies signature, expiry and token type
func ValidateToken(tokenString, secret string) (*Identity, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongType
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant_id claim", ErrInvalidToken)
	}

	return &Identity{TenantID: tenantID, UserID: claims.Subject, Role: claims.Role}, nil
}
