package api

import (
	"context"
	"net/http"

	json "github.com/json-iterator/go"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const authPrefix = "/auth/v1"

func postAuth(ctx context.Context, path string, query map[string]string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req := client.GetClient().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParams(query).
		SetBody(data)

	resp, err := client.Send(req, http.MethodPost, authPrefix+path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// SignUp registers a new account. The username travels as user metadata so
// the backend's signup trigger can create the profile row.
func SignUp(ctx context.Context, email, password, username, fullName string) (*Session, error) {
	logger.Debug("Signing up", "email", email, "username", username)

	req := SignUpRequest{
		Email:    email,
		Password: password,
		Data: map[string]interface{}{
			"username":  username,
			"full_name": fullName,
		},
	}

	var session Session
	if err := postAuth(ctx, "/signup", nil, req, &session); err != nil {
		return nil, err
	}

	logger.Debug("Sign up complete", "user_id", session.User.ID)
	return &session, nil
}

// Login authenticates user with email and password
func Login(ctx context.Context, email, password string) (*Session, error) {
	logger.Debug("Attempting login", "email", email)

	var session Session
	err := postAuth(ctx, "/token", map[string]string{"grant_type": "password"},
		PasswordGrantRequest{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}

	logger.Debug("Login successful", "user_id", session.User.ID)
	return &session, nil
}

// Refresh exchanges a refresh token for a new session
func Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	logger.Debug("Refreshing access token")

	var session Session
	err := postAuth(ctx, "/token", map[string]string{"grant_type": "refresh_token"},
		RefreshTokenRequest{RefreshToken: refreshToken}, &session)
	if err != nil {
		return nil, err
	}

	logger.Debug("Access token refreshed")
	return &session, nil
}

// Logout revokes the current session on the backend
func Logout(ctx context.Context) error {
	logger.Debug("Logging out")

	req := client.GetClient().R().SetContext(ctx)
	resp, err := client.Send(req, http.MethodPost, authPrefix+"/logout")
	return CheckResponse(resp, err)
}

// GetCurrentUser gets the current authenticated user
func GetCurrentUser(ctx context.Context) (*AuthUser, error) {
	logger.Debug("Fetching current user")

	req := client.GetClient().R().SetContext(ctx)
	resp, err := client.Send(req, http.MethodGet, authPrefix+"/user")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user AuthUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, err
	}

	logger.Debug("Current user fetched", "user_id", user.ID)
	return &user, nil
}

// RequestPasswordRecovery sends a password reset email
func RequestPasswordRecovery(ctx context.Context, email string) error {
	logger.Debug("Requesting password recovery", "email", email)
	return postAuth(ctx, "/recover", nil, map[string]string{"email": email}, nil)
}

// UpdatePassword changes the signed-in user's password
func UpdatePassword(ctx context.Context, password string) error {
	logger.Debug("Updating password")

	data, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return err
	}
	req := client.GetClient().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data)

	resp, err := client.Send(req, http.MethodPut, authPrefix+"/user")
	return CheckResponse(resp, err)
}
