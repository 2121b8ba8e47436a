package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/credentials"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// SessionRecovery refreshes stored sessions with a bounded number of attempts
type SessionRecovery struct {
	maxRetries int
	retryDelay time.Duration
	refresh    func(ctx context.Context, refreshToken string) (*api.Session, error)
}

// NewSessionRecovery creates a new session recovery handler
func NewSessionRecovery() *SessionRecovery {
	return &SessionRecovery{
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		refresh:    api.Refresh,
	}
}

// RecoverSession exchanges the stored refresh token for a new session and
// persists it
func (sr *SessionRecovery) RecoverSession(ctx context.Context, creds *credentials.Credentials) (*credentials.Credentials, error) {
	logger.Debug("Attempting to recover session")

	if creds == nil || creds.RefreshToken == "" {
		return nil, clierrors.SessionExpiredError()
	}

	var lastErr error
	for attempt := 1; attempt <= sr.maxRetries; attempt++ {
		logger.Debug("Refreshing token", "attempt", attempt)

		session, err := sr.refresh(ctx, creds.RefreshToken)
		if err == nil {
			return SaveSession(session, creds.Username)
		}
		lastErr = err

		// a rejected refresh token will not start working on retry
		if api.IsUnauthorized(err) || statusIs4xx(err) {
			break
		}
		if attempt < sr.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sr.retryDelay):
			}
		}
	}

	logger.Warn("Session recovery failed", "error", lastErr)
	expired := clierrors.SessionExpiredError()
	expired.Cause = lastErr
	return nil, expired
}

func statusIs4xx(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// IsSessionError checks if an error means the access token was rejected
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	if api.IsUnauthorized(err) {
		return true
	}
	var cliErr *clierrors.CLIError
	return errors.As(err, &cliErr) && cliErr.Type == clierrors.ErrorTypeSessionExpired
}

// SaveSession stores a freshly issued session and installs its token on
// the shared client
func SaveSession(session *api.Session, username string) (*credentials.Credentials, error) {
	creds, err := credentials.FromToken(session.AccessToken, session.RefreshToken, session.ExpiresIn, username)
	if err != nil {
		return nil, err
	}
	if creds.UserID == "" {
		creds.UserID = session.User.ID
	}
	if creds.Email == "" {
		creds.Email = session.User.Email
	}
	if err := credentials.Save(creds); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	client.SetAuthToken(creds.AccessToken)
	return creds, nil
}

// RequireSession loads the stored login, refreshing it when it is about to
// expire, and authenticates the shared client with it
func RequireSession(ctx context.Context) (*credentials.Credentials, error) {
	return NewSessionRecovery().Require(ctx)
}

// Require is RequireSession with this recovery policy
func (sr *SessionRecovery) Require(ctx context.Context) (*credentials.Credentials, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || creds.AccessToken == "" {
		return nil, clierrors.AuthError("Not logged in")
	}

	if creds.NeedsRefresh() {
		refreshed, err := sr.RecoverSession(ctx, creds)
		if err != nil {
			return nil, err
		}
		creds = refreshed
	} else if creds.IsExpired() {
		return nil, clierrors.SessionExpiredError()
	}

	client.SetAuthToken(creds.AccessToken)
	return creds, nil
}

// RequireAdmin is RequireSession for the admin panel
func RequireAdmin(ctx context.Context) (*credentials.Credentials, error) {
	creds, err := RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !creds.IsAdmin {
		forbidden := clierrors.ForbiddenError()
		forbidden.Message = "The admin panel requires an admin account"
		return nil, forbidden
	}
	return creds, nil
}
