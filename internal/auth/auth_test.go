package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := New("test-secret", time.Minute)
	token, err := svc.CreateToken("player-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	playerID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "player-123", playerID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Minute).CreateToken("player-123")
	require.NoError(t, err)

	_, err = New("secret-b", time.Minute).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	// New clamps non-positive lifetimes to the default, so build the
	// expired service directly.
	svc := &Service{secret: []byte("test-secret"), lifetime: -time.Minute}
	token, err := svc.CreateToken("player-123")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := New("test-secret", time.Minute).VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
