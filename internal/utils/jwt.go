package utils // package utils provides helpers for reading and minting session tokens

import (
	"errors" // errors defines the sentinel values returned by ParseSessionToken
	"fmt"    // fmt wraps the underlying parser error
	"time"   // time utilities for expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for verifying and creating signed tokens
)

// ErrInvalidToken is returned when the token is malformed, signed with a
// different secret or signed with an algorithm other than HS256.
var ErrInvalidToken = errors.New("invalid token")

// ErrMissingEmail is returned when a correctly signed token carries no email
// claim.  Users are looked up by email so such a token cannot be resolved.
var ErrMissingEmail = errors.New("token has no email claim")

// SessionClaims are the claims the API reads from an identity provider
// session token.  ExpiresAt is the zero time when the token has no exp claim.
type SessionClaims struct {
	Email     string
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether now is strictly after the expiry.  A token without
// an exp claim never expires.
func (c SessionClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseSessionToken verifies the HS256 signature of raw and extracts its
// claims.  Expiry is deliberately not checked here: the caller checks it
// after resolving the user, so an expired token for a deleted user reports
// the missing user first.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	claims := jwt.MapClaims{}
	// WithoutClaimsValidation turns off exp/nbf/iat checks; WithValidMethods
	// rejects "none" and asymmetric algorithms before the key func runs.
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var out SessionClaims
	// Claims are optional strings; a wrong type is treated as absent.
	out.Email, _ = claims["email"].(string)
	out.Subject, _ = claims["sub"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.Email == "" {
		return out, ErrMissingEmail
	}
	return out, nil
}

// NewSessionToken signs an HS256 token carrying email and sub that expires
// after ttl.  The API never issues tokens to clients; this mirrors what the
// identity provider produces and is used by tests and local tooling.
func NewSessionToken(secret, email, sub string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	// exp is stored as a Unix timestamp, like the provider does.
	claims := jwt.MapClaims{
		"email": email,
		"sub":   sub,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
