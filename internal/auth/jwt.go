// Package auth verifies and mints the bearer tokens that identify the
// owner of a request.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrMissingSubject  = errors.New("token has no subject")
	ErrNoSecret        = errors.New("token secret not configured")
)

// Claims are the JWT claims stash understands. The subject is the owner id.
type Claims struct {
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	OwnerID string
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a Verifier. Empty issuer or audience disable the
// corresponding check.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return Identity{}, ErrNoSecret
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Identity{}, ErrInvalidIssuer
	}
	if v.audience != "" && !slices.Contains(claims.Audience, v.audience) {
		return Identity{}, ErrInvalidAudience
	}
	if claims.Subject == "" {
		return Identity{}, ErrMissingSubject
	}

	return Identity{OwnerID: claims.Subject}, nil
}

// Issuer mints HS256 tokens accepted by a Verifier with the same settings.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue returns a signed token whose subject is ownerID.
func (i *Issuer) Issue(ownerID string) (string, error) {
	if ownerID == "" {
		return "", ErrMissingSubject
	}
	if len(i.secret) == 0 {
		return "", ErrNoSecret
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
