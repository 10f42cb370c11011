package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", "acadhub-identity", time.Hour)

	token, err := manager.Generate(Identity{DisplayName: "John Doe", Email: "12345@university.edu"})
	require.NoError(t, err)

	identity, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", identity.DisplayName)
	assert.Equal(t, "12345@university.edu", identity.Email)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minted := NewTokenManager("secret-a", "acadhub-identity", time.Hour)
	verifier := NewTokenManager("secret-b", "acadhub-identity", time.Hour)

	token, err := minted.Generate(Identity{Email: "12345@university.edu"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	minted := NewTokenManager("test-secret", "someone-else", time.Hour)
	verifier := NewTokenManager("test-secret", "acadhub-identity", time.Hour)

	token, err := minted.Generate(Identity{Email: "12345@university.edu"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	manager := NewTokenManager("test-secret", "acadhub-identity", -time.Minute)

	token, err := manager.Generate(Identity{Email: "12345@university.edu"})
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", "acadhub-identity", time.Hour)

	_, err := manager.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
