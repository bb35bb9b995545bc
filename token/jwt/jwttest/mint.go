// Package jwttest mints HS256 tokens for tests and fake backends.
package jwttest

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Secret signs every minted token. Nothing on the client side verifies it.
var Secret = []byte("test-signing-secret")

// Sign signs the given claims.
func Sign(claims jwtlib.MapClaims) (string, error) {
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(Secret)
}

// AccessToken returns a signed token for subject expiring at exp.
func AccessToken(t testing.TB, subject string, exp time.Time, roles ...string) string {
	t.Helper()
	raw, err := Sign(Claims(subject, exp, roles...))
	require.NoError(t, err)
	return raw
}

// Claims builds a claim set the way the backend issues it.
func Claims(subject string, exp time.Time, roles ...string) jwtlib.MapClaims {
	if roles == nil {
		roles = []string{}
	}
	return jwtlib.MapClaims{
		"iss":   "https://api.example.com",
		"sub":   subject,
		"iat":   exp.Add(-time.Hour).Unix(),
		"exp":   exp.Unix(),
		"roles": roles,
	}
}
