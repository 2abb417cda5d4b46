// Package jwtx verifies the HS256 access tokens minted by the upstream auth
// service. The token subject carries the verified user id and the email claim
// the verified address; both are trusted inputs to session resolution.
package jwtx

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed, mis-signed, or expired tokens.
	ErrTokenInvalid = errors.New("jwtx: invalid token")
	// ErrMissingSubject reports a structurally valid token with no subject.
	ErrMissingSubject = errors.New("jwtx: token has no subject")
)

// Claims are the access-token claims this service consumes. Scope is a
// space-delimited list as in RFC 8693.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Scope string `json:"scope,omitempty"`
}

// Scopes splits the space-delimited scope claim.
func (c Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Verifier validates HS256 tokens against a shared secret and expected issuer.
type Verifier struct {
	Secret []byte
	Issuer string
}

// Verify parses and validates raw, returning its claims.
func (v Verifier) Verify(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return v.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, errors.Join(ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return Claims{}, ErrMissingSubject
	}

	return claims, nil
}

// Signer mints tokens. Production tokens come from the auth service; this is
// for tests and local development tooling.
type Signer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Sign returns a signed token for the given subject.
func (s Signer) Sign(subject, email string, scopes []string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		Email: email,
		Scope: strings.Join(scopes, " "),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}
