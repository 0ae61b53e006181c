// Package auth issues and checks the bearer tokens that bind a gateway
// caller to a ledger address.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/groupledger/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Issuer is the iss claim on every token this package signs.
const Issuer = "groupledger"

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// Claims are the JWT claims for a caller session. The subject is the
// caller's address in hex.
type Claims struct {
	Label string `json:"label,omitempty"`
	jwt.RegisteredClaims
}

// Caller returns the address named by the subject claim.
func (c *Claims) Caller() (models.Address, error) {
	addr, err := models.ParseAddress(c.Subject)
	if err != nil {
		return models.Address{}, fmt.Errorf("%w: bad subject: %v", ErrInvalidToken, err)
	}
	if addr.IsZero() {
		return models.Address{}, fmt.Errorf("%w: null subject", ErrInvalidToken)
	}
	return addr, nil
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate creates a token that authenticates its bearer as caller.
func (m *JWTManager) Generate(caller models.Address, label string) (string, error) {
	if caller.IsZero() {
		return "", fmt.Errorf("failed to sign token: null caller")
	}
	now := m.now()
	claims := &Claims{
		Label: label,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   caller.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a JWT token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Caller(); err != nil {
		return nil, err
	}

	return claims, nil
}
