package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/socialhub/socialhub-cli/pkg/config"
)

// refreshSkew makes a session count as expired slightly before the token does.
const refreshSkew = 60 * time.Second

type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
}

// SessionClaims is the subset of the backend's access token we rely on
type SessionClaims struct {
	Email       string                 `json:"email"`
	Role        string                 `json:"role"`
	AppMetadata map[string]interface{} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token grants the admin panel
func (c *SessionClaims) IsAdmin() bool {
	if c.AppMetadata == nil {
		return false
	}
	role, _ := c.AppMetadata["role"].(string)
	return role == "admin"
}

// ParseClaims decodes the access token without verifying its signature.
// Verification is the backend's job; the client only needs identity and expiry.
func ParseClaims(accessToken string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return claims, nil
}

// FromToken builds credentials from a freshly issued token pair
func FromToken(accessToken, refreshToken string, expiresIn int, username string) (*Credentials, error) {
	claims, err := ParseClaims(accessToken)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		UserID:       claims.Subject,
		Username:     username,
		Email:        claims.Email,
		IsAdmin:      claims.IsAdmin(),
	}, nil
}

// Load loads credentials from disk
func Load() (*Credentials, error) {
	path := config.GetCredentialsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Credentials don't exist yet
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// Save saves credentials to disk
func Save(creds *Credentials) error {
	path := config.GetCredentialsPath()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	// Write with restricted permissions (owner read/write only)
	return os.WriteFile(path, data, 0600)
}

// Delete deletes credentials from disk
func Delete() error {
	path := config.GetCredentialsPath()
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsExpired checks if the access token is expired
func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// NeedsRefresh is true when the token expires within the refresh skew
func (c *Credentials) NeedsRefresh() bool {
	return c.RefreshToken != "" && time.Now().Add(refreshSkew).After(c.ExpiresAt)
}

// IsValid checks if credentials are valid
func (c *Credentials) IsValid() bool {
	return c.AccessToken != "" && !c.IsExpired()
}
