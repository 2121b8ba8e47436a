package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// GetProfileByUsername retrieves a profile by its unique username
func GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	logger.Debug("Fetching profile", "username", username)

	var profile Profile
	if _, err := From("profiles").Select("*").Eq("username", username).Single().Get(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfile retrieves a profile by user ID
func GetProfile(ctx context.Context, userID string) (*Profile, error) {
	logger.Debug("Fetching profile", "user_id", userID)

	var profile Profile
	if _, err := From("profiles").Select("*").Eq("id", userID).Single().Get(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile patches the caller's own profile row
func UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error) {
	logger.Debug("Updating profile", "user_id", userID)

	var rows []Profile
	if err := From("profiles").Eq("id", userID).Update(ctx, req, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("profile not found")
	}
	return &rows[0], nil
}

// ListProfiles returns profiles newest first, optionally only banned ones
func ListProfiles(ctx context.Context, page, pageSize int, bannedOnly bool) (*PageResult[Profile], error) {
	logger.Debug("Listing profiles", "page", page, "page_size", pageSize, "banned_only", bannedOnly)

	q := From("profiles").Select("*").Order("created_at", false).Page(page, pageSize).Count()
	if bannedOnly {
		q.Is("is_banned", "true")
	}

	var profiles []Profile
	total, err := q.Get(ctx, &profiles)
	if err != nil {
		return nil, err
	}
	return &PageResult[Profile]{Items: profiles, Total: total, Page: page, PageSize: pageSize}, nil
}
