package token

// Package token decodes JWT payloads as a best-effort expiry hint.
//
// The signature is NOT verified: the client has no key-distribution
// mechanism, so nothing decoded here is authoritative. Server-side
// validation remains the source of truth; these helpers only feed
// client-side scheduling (proactive refresh, expiry warnings) and fail
// safe by reporting "expiring" whenever a token cannot be decoded.

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// Claims returns the decoded (unverified) claim set of a JWT.
func Claims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of a JWT. The second return is false when
// the token cannot be decoded or carries no expiry.
func ExpiresAt(raw string) (time.Time, bool) {
	claims, err := Claims(raw)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiringSoon reports whether the token expires within the threshold from
// now. A missing or undecodable token counts as expiring (fail-safe).
func ExpiringSoon(raw string, threshold time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return true
	}
	return exp.Before(now.Add(threshold))
}

// Remaining returns the time left before the token expires, clamped at zero.
// A missing or undecodable token has no time remaining.
func Remaining(raw string, now time.Time) time.Duration {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return 0
	}
	if rem := exp.Sub(now); rem > 0 {
		return rem
	}
	return 0
}
