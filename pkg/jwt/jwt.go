package jwt

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

const (
	issuer   = "go-distributor-ledger"
	tokenTTL = 24 * time.Hour
)

// Claims represents the JWT claims structure.
// DistributorID is the tenant the user acts for; it is nil for the platform admin.
type Claims struct {
	UserID        uuid.UUID  `json:"user_id"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	DistributorID *uuid.UUID `json:"distributor_id,omitempty"`
	Privileges    []string   `json:"privileges"`
	TokenVersion  string     `json:"token_version"`
	jwt.RegisteredClaims
}

var (
	secretMu sync.RWMutex
	secret   []byte
)

// SetSecret overrides the signing key read from JWT_SECRET.
func SetSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = []byte(s)
}

// GetSecretKey returns the configured secret, then JWT_SECRET, then a development default.
func GetSecretKey() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	if len(secret) > 0 {
		return secret
	}
	if env := os.Getenv("JWT_SECRET"); env != "" {
		return []byte(env)
	}
	return []byte("your-super-secret-key-change-in-production")
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uuid.UUID, name, role string, distributorID *uuid.UUID, privileges []string, tokenVersion string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:        userID,
		Name:          name,
		Role:          role,
		DistributorID: distributorID,
		Privileges:    privileges,
		TokenVersion:  tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(GetSecretKey())
}

// ValidateToken parses and validates a JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return GetSecretKey(), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
