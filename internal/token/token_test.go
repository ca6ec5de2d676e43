package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeJWT builds an unsigned JWT with the given payload claims. The signature
// segment is junk, which is fine since decoding never verifies it.
func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]any{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.%s",
		enc.EncodeToString(header),
		enc.EncodeToString(payload),
		enc.EncodeToString([]byte("sig")),
	)
}

func TestClaims(t *testing.T) {
	raw := makeJWT(t, map[string]any{"sub": "42", "exp": 1735689600})

	claims, err := Claims(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims["sub"])

	_, err = Claims("not-a-jwt")
	assert.Error(t, err)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := makeJWT(t, map[string]any{"exp": exp.Unix()})

	got, ok := ExpiresAt(raw)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = ExpiresAt(makeJWT(t, map[string]any{"sub": "42"}))
	assert.False(t, ok, "token without exp claim")

	_, ok = ExpiresAt("garbage")
	assert.False(t, ok)
}

func TestExpiringSoon(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	raw := makeJWT(t, map[string]any{"exp": now.Add(time.Hour).Unix()})

	assert.False(t, ExpiringSoon(raw, 10*time.Minute, now))
	assert.True(t, ExpiringSoon(raw, 2*time.Hour, now))

	// Fail safe on anything undecodable.
	assert.True(t, ExpiringSoon("", 10*time.Minute, now))
	assert.True(t, ExpiringSoon("garbage", 10*time.Minute, now))
}

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	raw := makeJWT(t, map[string]any{"exp": now.Add(45 * time.Minute).Unix()})
	assert.Equal(t, 45*time.Minute, Remaining(raw, now))

	expired := makeJWT(t, map[string]any{"exp": now.Add(-time.Minute).Unix()})
	assert.Equal(t, time.Duration(0), Remaining(expired, now))

	assert.Equal(t, time.Duration(0), Remaining("", now))
}
