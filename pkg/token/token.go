package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes. Player tokens come from platform sign-in, admin tokens only from
// the password login.
const (
	ScopePlayer = "player"
	ScopeAdmin  = "admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func Issue(secret, subject, scope string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func Parse(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Scope != ScopePlayer && claims.Scope != ScopeAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
