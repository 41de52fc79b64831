// Package token issues and verifies the compact signed session tokens that
// bind a user id to an expiry. Possession of a non-expired, correctly signed
// token is always sufficient; there is no revocation list.
package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Service struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// NewService creates a token service with an HS256 symmetric secret and the
// session lifetime applied to every issued token.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue produces a signed token with subject = userID, expiry = now + TTL.
func (s *Service) Issue(userID string) (string, error) {
	now := s.now().UTC()

	claims := jwtlib.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
	}

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks structure, signature and expiry, returning the bound user id.
// Malformed or tampered tokens fail with ErrTokenInvalid; expired ones with
// ErrTokenExpired.
func (s *Service) Verify(tokenString string) (string, error) {
	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return s.now() }),
	)

	var claims jwtlib.RegisteredClaims
	tok, err := p.ParseWithClaims(tokenString, &claims, func(token *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if tok == nil || !tok.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
