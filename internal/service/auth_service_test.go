package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
)

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t, false)

	pair, err := f.auth.Login(context.Background(), "HANA@example.com", testPassword, domain.SessionMeta{UserAgent: "ua"})
	require.NoError(t, err)
	assert.Len(t, pair.RefreshToken, RefreshTokenLength)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)

	subject, err := f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.employee.Subject, subject)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, f.employee.Subject.Email, "wrong", domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody@example.com", testPassword, domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, f.inactive.Subject.Email, testPassword, domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestAccessExpiresButRefreshStillWorks(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, f.employee.Subject.Email, testPassword, domain.SessionMeta{})
	require.NoError(t, err)

	_, err = f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(15*time.Minute + time.Second)
	_, err = f.tokens.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	_, err = f.sessions.ValidateSession(ctx, pair.RefreshToken)
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, pair.RefreshToken, domain.SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken, "rotation disabled keeps the token")
	assert.Equal(t, pair.SessionID, refreshed.SessionID)

	subject, err := f.tokens.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.employee.Subject.ID, subject.ID)
}

func TestRefreshWithRotation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, f.employee.Subject.Email, testPassword, domain.SessionMeta{})
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, pair.RefreshToken, domain.SessionMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	_, err = f.auth.Refresh(ctx, pair.RefreshToken, domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionInvalid)

	_, err = f.auth.Refresh(ctx, refreshed.RefreshToken, domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionInvalid, "reuse revoked the session")
}

func TestLogoutRevokesAndReturnsExpiredToken(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, f.employee.Subject.Email, testPassword, domain.SessionMeta{})
	require.NoError(t, err)

	res, err := f.auth.Logout(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(auth.LogoutTokenTTL), res.ExpiresAt)

	f.clock.Advance(auth.LogoutTokenTTL)
	_, err = f.tokens.Verify(res.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	_, err = f.auth.Refresh(ctx, pair.RefreshToken, domain.SessionMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionInvalid)

	_, err = f.auth.Logout(ctx, pair.RefreshToken)
	assert.NoError(t, err, "logout is idempotent")
}

func TestMe(t *testing.T) {
	f := newFixture(t, false)

	acc, err := f.auth.Me(context.Background(), f.employee.Subject)
	require.NoError(t, err)
	assert.Equal(t, f.employee.Name, acc.Name)

	_, err = f.auth.Me(context.Background(), domain.Subject{ID: "missing", Type: domain.SubjectTypeEmployee})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
