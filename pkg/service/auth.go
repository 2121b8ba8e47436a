package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/credentials"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// MinPasswordLength matches the auth service's default policy
const MinPasswordLength = 6

type AuthService struct{}

// NewAuthService creates a new auth service
func NewAuthService() *AuthService {
	return &AuthService{}
}

// Login signs in with email and password, prompting for whatever is missing
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return err
	}

	if creds != nil && creds.IsValid() && email == "" {
		formatter.PrintWarning("Already logged in as %s", creds.Username)
		confirm, err := prompter.PromptConfirm("Continue with new login?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if email == "" {
		if email, err = prompter.PromptRequired("Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = prompter.PromptPassword("Password: "); err != nil {
			return err
		}
	}
	if password == "" {
		return clierrors.ValidationError("password", "cannot be empty")
	}

	formatter.PrintInfo("Authenticating...")
	session, err := api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	creds, err = s.storeSession(ctx, session)
	if err != nil {
		return err
	}

	formatter.PrintSuccess("✓ Login successful!")
	return s.displayCredentials(creds)
}

// SignUp registers a new account. The backend creates the profile row
// from the username and full name in the user metadata.
func (s *AuthService) SignUp(ctx context.Context, email, username, fullName, password string) error {
	var err error
	if email == "" {
		if email, err = prompter.PromptRequired("Email: "); err != nil {
			return err
		}
	}
	if username == "" {
		if username, err = prompter.PromptRequired("Username: "); err != nil {
			return err
		}
	}
	if fullName == "" {
		if fullName, err = prompter.PromptString("Full name (optional): "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = prompter.PromptPassword("Password: "); err != nil {
			return err
		}
		confirm, err := prompter.PromptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return clierrors.ValidationError("password", "passwords do not match")
		}
	}

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if err := validateUsername(username); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return clierrors.ValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	logger.Debug("Signing up", "email", email, "username", username)
	formatter.PrintInfo("Creating account...")
	session, err := api.SignUp(ctx, email, password, username, strings.TrimSpace(fullName))
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}

	// email confirmation pending: no session is issued yet
	if session.AccessToken == "" {
		formatter.PrintSuccess("✓ Account created")
		formatter.PrintInfo("Check %s for a confirmation link, then run 'socialhub auth login'", email)
		return nil
	}

	creds, err := auth.SaveSession(session, username)
	if err != nil {
		return err
	}
	formatter.PrintSuccess("✓ Account created and logged in as @%s", creds.Username)
	return nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return clierrors.ValidationError("username", "must be 3-30 characters")
	}
	for _, r := range username {
		if !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return clierrors.ValidationError("username", "may only contain letters, digits, '.' and '_'")
		}
	}
	return nil
}

// storeSession saves a new session under the username of its profile
func (s *AuthService) storeSession(ctx context.Context, session *api.Session) (*credentials.Credentials, error) {
	client.SetAuthToken(session.AccessToken)

	username := ""
	profile, err := api.GetProfile(ctx, session.User.ID)
	switch {
	case err == nil:
		username = profile.Username
	case api.IsNotFound(err):
		logger.Warn("No profile for user", "user_id", session.User.ID)
	default:
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if username == "" {
		username = strings.Split(session.User.Email, "@")[0]
	}

	return auth.SaveSession(session, username)
}

// Logout revokes the session on the backend and forgets it locally
func (s *AuthService) Logout(ctx context.Context, force bool) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return err
	}
	if creds == nil {
		formatter.PrintWarning("Not logged in")
		return nil
	}

	if !force {
		confirm, err := prompter.PromptConfirm("Logout?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if !creds.IsExpired() {
		client.SetAuthToken(creds.AccessToken)
		if err := api.Logout(ctx); err != nil {
			// the local session is dropped regardless
			logger.Warn("Backend logout failed", "error", err)
		}
	}

	if err := credentials.Delete(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	client.ClearAuthToken()

	formatter.PrintSuccess("✓ Logged out successfully")
	return nil
}

// Me shows the signed-in account and its profile
func (s *AuthService) Me(ctx context.Context) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	user, err := api.GetCurrentUser(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			_ = credentials.Delete()
			return clierrors.SessionExpiredError()
		}
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	profile, err := api.GetProfile(ctx, user.ID)
	if err != nil && !api.IsNotFound(err) {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", map[string]interface{}{
			"user":     user,
			"profile":  profile,
			"is_admin": creds.IsAdmin,
		})
	}

	record := map[string]interface{}{
		"User ID":    user.ID,
		"Email":      user.Email,
		"Joined":     user.CreatedAt.Format("2006-01-02"),
		"Session":    "expires " + formatter.TimeAgo(creds.ExpiresAt),
		"Admin":      formatter.Check(creds.IsAdmin),
		"Username":   creds.Username,
		"Last Login": "never",
	}
	if user.LastSignInAt != nil {
		record["Last Login"] = formatter.TimeAgo(*user.LastSignInAt)
	}
	if profile != nil {
		record["Username"] = "@" + profile.Username
		record["Name"] = profile.FullName
		if profile.Bio != "" {
			record["Bio"] = profile.Bio
		}
	}

	formatter.Header("👤 Current User")
	return output.PrintRecord("", record)
}

// Refresh exchanges the refresh token for a new session now
func (s *AuthService) Refresh(ctx context.Context) error {
	creds, err := credentials.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return clierrors.AuthError("Not logged in")
	}

	refreshed, err := auth.NewSessionRecovery().RecoverSession(ctx, creds)
	if err != nil {
		return err
	}
	formatter.PrintSuccess("✓ Session refreshed, valid until %s", refreshed.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// Status reports the stored session without touching the network
func (s *AuthService) Status() error {
	creds, err := credentials.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		if output.IsJSON() {
			return output.Print("", map[string]bool{"logged_in": false})
		}
		formatter.PrintWarning("Not logged in")
		return nil
	}
	return s.displayCredentials(creds)
}

func (s *AuthService) displayCredentials(creds *credentials.Credentials) error {
	if output.IsJSON() {
		return output.Print("", map[string]interface{}{
			"logged_in":  true,
			"user_id":    creds.UserID,
			"username":   creds.Username,
			"email":      creds.Email,
			"is_admin":   creds.IsAdmin,
			"expires_at": creds.ExpiresAt,
			"expired":    creds.IsExpired(),
		})
	}

	status := "valid"
	if creds.IsExpired() {
		status = "expired"
	}
	record := map[string]interface{}{
		"Username": "@" + creds.Username,
		"Email":    creds.Email,
		"User ID":  creds.UserID,
		"Session":  fmt.Sprintf("%s (expires %s)", status, formatter.TimeAgo(creds.ExpiresAt)),
	}
	if creds.IsAdmin {
		record["Admin"] = "✓ YES"
	}
	formatter.Printf("\n")
	return output.PrintRecord("", record)
}

// RecoverPassword asks the backend to email a recovery link
func (s *AuthService) RecoverPassword(ctx context.Context, email string) error {
	var err error
	if email == "" {
		if email, err = prompter.PromptRequired("Email: "); err != nil {
			return err
		}
	}
	if err := api.RequestPasswordRecovery(ctx, email); err != nil {
		return fmt.Errorf("failed to request password recovery: %w", err)
	}
	formatter.PrintSuccess("✓ If %s has an account, a recovery link is on its way", email)
	return nil
}

// ChangePassword sets a new password for the signed-in account
func (s *AuthService) ChangePassword(ctx context.Context) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	password, err := prompter.PromptPassword("New password: ")
	if err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return clierrors.ValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	confirm, err := prompter.PromptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if confirm != password {
		return clierrors.ValidationError("password", "passwords do not match")
	}

	if err := api.UpdatePassword(ctx, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	formatter.PrintSuccess("✓ Password updated")
	return nil
}
