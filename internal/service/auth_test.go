package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/chess-coach/internal/auth"
)

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-key-at-least-16-chars")
	require.NoError(t, err)
	return tokens
}

// ============================================================
// LoginOrRegisterGoogle
// ============================================================

func TestLoginOrRegisterGoogle_CreatesUserAndToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, newTestTokens(t), discardLogger())

	result, err := svc.LoginOrRegisterGoogle(context.Background(), &auth.GoogleUser{
		ID:    "google-123",
		Name:  "alice",
		Email: "alice@example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "alice", result.User.Name)
	assert.NotEmpty(t, result.Token)

	// the token round-trips back to the stored user
	userID, err := newTestTokens(t).Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
}

func TestLoginOrRegisterGoogle_NilUser(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), newTestTokens(t), discardLogger())

	_, err := svc.LoginOrRegisterGoogle(context.Background(), nil)
	assert.Error(t, err)
}
