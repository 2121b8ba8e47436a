package auth

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/credentials"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	client.Init()
}

func token(t *testing.T, subject string, admin bool, ttl time.Duration) string {
	t.Helper()
	claims := credentials.SessionClaims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	if admin {
		claims.AppMetadata = map[string]interface{}{"role": "admin"}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func fastRecovery(refresh func(context.Context, string) (*api.Session, error)) *SessionRecovery {
	return &SessionRecovery{maxRetries: 3, retryDelay: time.Millisecond, refresh: refresh}
}

func TestRequireSessionNotLoggedIn(t *testing.T) {
	setup(t)

	_, err := RequireSession(context.Background())
	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, clierrors.ErrorTypeAuth, cliErr.Type)
}

func TestRequireSessionValid(t *testing.T) {
	setup(t)
	access := token(t, "u1", false, time.Hour)
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: access, RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour), UserID: "u1",
	}))

	sr := fastRecovery(func(context.Context, string) (*api.Session, error) {
		t.Fatal("valid session must not refresh")
		return nil, nil
	})
	creds, err := sr.Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", creds.UserID)
	assert.Equal(t, "Bearer "+access, client.Headers().Get("Authorization"))
}

func TestRequireSessionRefreshesNearExpiry(t *testing.T) {
	setup(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: "old", RefreshToken: "r1", ExpiresAt: time.Now().Add(10 * time.Second),
		UserID: "u1", Username: "ada",
	}))

	fresh := token(t, "u1", true, time.Hour)
	calls := 0
	sr := fastRecovery(func(_ context.Context, rt string) (*api.Session, error) {
		calls++
		assert.Equal(t, "r1", rt)
		if calls == 1 {
			return nil, &api.APIError{StatusCode: http.StatusBadGateway}
		}
		return &api.Session{AccessToken: fresh, RefreshToken: "r2", ExpiresIn: 3600}, nil
	})

	creds, err := sr.Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, fresh, creds.AccessToken)
	assert.Equal(t, "ada", creds.Username)
	assert.True(t, creds.IsAdmin)

	stored, err := credentials.Load()
	require.NoError(t, err)
	assert.Equal(t, "r2", stored.RefreshToken)
}

func TestRecoverSessionStopsOnRejectedToken(t *testing.T) {
	setup(t)
	calls := 0
	sr := fastRecovery(func(context.Context, string) (*api.Session, error) {
		calls++
		return nil, &api.APIError{StatusCode: http.StatusBadRequest, Message: "invalid refresh token"}
	})

	_, err := sr.RecoverSession(context.Background(), &credentials.Credentials{RefreshToken: "bad"})
	assert.Equal(t, 1, calls)
	assert.True(t, IsSessionError(err))
}

func TestRecoverSessionWithoutRefreshToken(t *testing.T) {
	setup(t)
	_, err := NewSessionRecovery().RecoverSession(context.Background(), &credentials.Credentials{})
	assert.True(t, IsSessionError(err))
}

func TestRequireSessionExpiredWithoutRefresh(t *testing.T) {
	setup(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := RequireSession(context.Background())
	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, clierrors.ErrorTypeSessionExpired, cliErr.Type)
}

func TestRequireAdmin(t *testing.T) {
	setup(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: token(t, "u1", false, time.Hour), ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, err := RequireAdmin(context.Background())
	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, clierrors.ErrorTypeForbidden, cliErr.Type)

	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: token(t, "u2", true, time.Hour), ExpiresAt: time.Now().Add(time.Hour), IsAdmin: true,
	}))
	creds, err := RequireAdmin(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.IsAdmin)
}

func TestIsSessionError(t *testing.T) {
	assert.False(t, IsSessionError(nil))
	assert.False(t, IsSessionError(errors.New("unauthorized")))
	assert.True(t, IsSessionError(&api.APIError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsSessionError(clierrors.SessionExpiredError()))
	assert.False(t, IsSessionError(&api.APIError{StatusCode: http.StatusForbidden}))
}
