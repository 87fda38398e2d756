package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "k1", ExpirationHours: 2})

	token, issued, err := j.GenerateToken(7, "vendor", "vera@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.ActorID)
	assert.Equal(t, "vendor", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, (2 * time.Hour).Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestValidateRejects(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "k1", ExpirationHours: 1})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTUtil(&JWTConfig{SigningKey: "k1", ExpirationHours: 1})
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.GenerateToken(1, "consumer", "")
		require.NoError(t, err)

		_, err = j.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewJWTUtil(&JWTConfig{SigningKey: "k2", ExpirationHours: 1})
		token, _, err := other.GenerateToken(1, "consumer", "")
		require.NoError(t, err)

		_, err = j.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		token, _, err := j.GenerateToken(1, "consumer", "")
		require.NoError(t, err)

		_, err = j.ValidateToken(token[:len(token)-2] + "xx")
		assert.Error(t, err)
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, _, err := NewJWTUtil(&JWTConfig{}).GenerateToken(1, "consumer", "")
		assert.Error(t, err)
	})
}

func TestRemainingWithoutExpiry(t *testing.T) {
	assert.Zero(t, (&SessionClaims{}).Remaining(time.Now()))
}
