package jwt

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// ExpirySkew is the clock-skew buffer applied when checking token expiry.
// A token expiring within this window is already treated as expired.
const ExpirySkew = 5 * time.Second

// Claims holds the fields read from an access token's payload segment.
type Claims struct {
	Issuer    string              `json:"iss,omitempty"`   // Issuer of the token
	IssuedAt  *jwtlib.NumericDate `json:"iat,omitempty"`   // Issued at time
	ExpiresAt *jwtlib.NumericDate `json:"exp,omitempty"`   // Expiration
	Subject   string              `json:"sub,omitempty"`   // Users unique ID
	Roles     jwtlib.ClaimStrings `json:"roles,omitempty"` // Roles assigned to the user
	Tenant    string              `json:"tenant,omitempty"`
	Email     string              `json:"email,omitempty"`
}

var segmentParser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// Decode extracts the claims of a compact token without verifying its signature.
// It returns nil when the token does not have exactly three segments or the payload
// cannot be decoded; callers treat a nil result as "no session".
func Decode(raw string) *Claims {
	claims, err := DecodeErr(raw)
	if err != nil {
		return nil
	}
	return claims
}

// DecodeErr is Decode with the failure reason, wrapped in errors.ErrMalformedToken.
func DecodeErr(raw string) (*Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", errors.ErrMalformedToken, len(parts))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "decode payload segment: %v", err)
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", errors.ErrMalformedToken)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "parse payload: %v", err)
	}
	return &claims, nil
}

// CheckExpiry returns errors.ErrTokenExpired unless the expiry lies strictly
// beyond now+skew. Tokens without an exp claim count as expired.
func (c *Claims) CheckExpiry(now time.Time, skew time.Duration) error {
	if c == nil {
		return errors.ErrMalformedToken
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: no exp claim", errors.ErrTokenExpired)
	}
	if !c.ExpiresAt.After(now.Add(skew)) {
		return fmt.Errorf("%w: exp %s", errors.ErrTokenExpired, c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidAt reports whether the token is still usable at now.
func (c *Claims) ValidAt(now time.Time, skew time.Duration) bool {
	return c.CheckExpiry(now, skew) == nil
}

// HasAnyRole returns true if at least one of roles is present in the token.
func (c *Claims) HasAnyRole(roles ...string) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}
