// Package auth verifies the HS256 bearer tokens staff clients present
// on the REST surface and on socket connect. Credential issuance lives
// in a separate service; this side only mints tokens in tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adilzhm/tably/internal/domain"
)

type Claims struct {
	UserID  int64       `json:"uid"`
	StoreID int64       `json:"sid"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// Verify parses and validates a bearer token string.
func Verify(tokenStr string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if !domain.ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Mint signs a token for the given identity. Used by tests and local
// tooling; production tokens come from the auth service.
func Mint(userID, storeID int64, role domain.Role, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:  userID,
		StoreID: storeID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
