package civicapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenRejected is returned when a token fails signature or expiry checks.
var ErrTokenRejected = errors.New("access token rejected")

// TokenClaims are the fields the portal reads from an issued access token.
type TokenClaims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	IssuedAt  time.Time `json:"iat,omitzero"`
	ExpiresAt time.Time `json:"exp,omitzero"`
	Verified  bool      `json:"verified"`
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInspector reads HS256 access tokens. With a secret the signature and
// expiry are verified; without one the claims are read as-is.
type TokenInspector struct {
	secret []byte
	now    func() time.Time
}

// NewTokenInspector returns an inspector. An empty secret disables verification.
func NewTokenInspector(secret string) *TokenInspector {
	return &TokenInspector{secret: []byte(secret), now: time.Now}
}

// Inspect parses raw and returns its claims.
func (i *TokenInspector) Inspect(raw string) (TokenClaims, error) {
	var c accessClaims
	verified := len(i.secret) > 0

	if verified {
		_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(i.now),
		)
		if err != nil {
			return TokenClaims{}, fmt.Errorf("%w: %w", ErrTokenRejected, err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return TokenClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	out := TokenClaims{Subject: c.Subject, Email: c.Email, Role: c.Role, Verified: verified}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}
