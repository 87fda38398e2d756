package service

import (
	"context"
	"testing"

	"locarto/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, model.RoleConsumer, "alice")

	session, err := f.sessions.Authenticate(ctx, "alice@example.com", "secret1", model.RoleConsumer)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, alice.ID, session.Actor.ID)

	actor, claims, err := f.sessions.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, actor.ID)
	assert.Equal(t, "consumer", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthenticateFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, model.RoleConsumer, "alice")

	_, err := f.sessions.Authenticate(ctx, "alice@example.com", "wrong-password", model.RoleConsumer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.sessions.Authenticate(ctx, "nobody@example.com", "secret1", model.RoleConsumer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// right password, wrong role
	_, err = f.sessions.Authenticate(ctx, "alice@example.com", "secret1", model.RoleVendor)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, model.RoleVendor, "acme")

	session, err := f.sessions.Authenticate(ctx, "acme@example.com", "secret1", model.RoleVendor)
	require.NoError(t, err)
	_, claims, err := f.sessions.Resolve(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, claims))

	_, _, err = f.sessions.Resolve(ctx, session.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Contains(t, err.Error(), "revoked")
}

func TestResolveRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, model.RoleConsumer, "alice")

	_, _, err := f.sessions.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = f.sessions.Resolve(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	session, err := f.sessions.Authenticate(ctx, "alice@example.com", "secret1", model.RoleConsumer)
	require.NoError(t, err)
	require.NoError(t, f.creds.Delete(ctx, alice))

	_, _, err = f.sessions.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
