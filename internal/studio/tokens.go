// ABOUTME: JWT share tokens for guest access grants
// ABOUTME: Uses HS256 signing with configurable secret

package studio

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid share token")
	ErrExpiredToken = errors.New("share token expired")
)

// TokenIssuer mints and verifies HS256 share tokens. The "sub" claim carries
// the grant ID; revocation is checked against the store, not the token.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a token issuer with the given signing secret.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &TokenIssuer{secret: secret}, nil
}

// Issue creates a share token for a grant, expiring with the grant.
func (t *TokenIssuer) Issue(grantID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": grantID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify validates a share token and extracts the grant ID from the "sub" claim.
func (t *TokenIssuer) Verify(tokenString string) (grantID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}
