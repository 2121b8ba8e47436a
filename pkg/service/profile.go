package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
	"github.com/socialhub/socialhub-cli/pkg/upload"
)

// Profile field limits
const (
	MaxBioLength      = 500
	MaxFullNameLength = 100
)

// ProfileUpdate holds optional profile changes. Nil fields are left alone.
type ProfileUpdate struct {
	FullName   *string
	Bio        *string
	Website    *string
	Location   *string
	AvatarPath string
	CoverPath  string
}

func (u ProfileUpdate) empty() bool {
	return u.FullName == nil && u.Bio == nil && u.Website == nil && u.Location == nil &&
		u.AvatarPath == "" && u.CoverPath == ""
}

// ProfileService manages user profiles
type ProfileService struct {
	uploads *UploadService
}

// NewProfileService creates a new profile service
func NewProfileService() *ProfileService {
	return &ProfileService{uploads: NewUploadService()}
}

// ProfileView is a profile plus its activity counters
type ProfileView struct {
	*api.Profile
	Posts   int  `json:"posts"`
	Friends int  `json:"friends"`
	IsMe    bool `json:"is_me"`
}

// ViewProfile shows username's profile, or your own when username is empty
func (ps *ProfileService) ViewProfile(ctx context.Context, username string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	var profile *api.Profile
	if username == "" {
		profile, err = api.GetProfile(ctx, creds.UserID)
		if err != nil {
			return fmt.Errorf("failed to fetch your profile: %w", err)
		}
	} else if profile, err = lookupProfile(ctx, username); err != nil {
		return err
	}

	view := ProfileView{Profile: profile, IsMe: profile.ID == creds.UserID}
	if posts, err := api.ListUserPosts(ctx, profile.ID, 1, 1); err == nil {
		view.Posts = posts.Total
	} else {
		logger.Warn("Failed to count posts", "user_id", profile.ID, "error", err)
	}
	if friends, err := api.GetFriends(ctx, profile.ID, 1, 1); err == nil {
		view.Friends = friends.Total
	} else {
		logger.Warn("Failed to count friends", "user_id", profile.ID, "error", err)
	}

	if output.IsJSON() {
		return output.Print("", view)
	}

	formatter.Header("👤 " + displayName(profile))
	if profile.IsBanned {
		formatter.PrintWarning("This account is banned")
	}
	if profile.Bio != "" {
		formatter.Printf("%s\n\n", profile.Bio)
	}
	if profile.Location != "" {
		formatter.Printf("📍 %s\n", profile.Location)
	}
	if profile.Website != "" {
		formatter.Printf("🔗 %s\n", profile.Website)
	}
	formatter.Printf("%s · %s\n", formatter.Pluralize(view.Posts, "post"), formatter.Pluralize(view.Friends, "friend"))
	formatter.Muted.Fprintf(output.Writer, "Joined %s\n", profile.CreatedAt.Local().Format("January 2006"))
	if view.IsMe {
		formatter.Muted.Fprintln(output.Writer, "Edit with 'socialhub profile update'")
	}
	return nil
}

// UpdateProfile applies changes to your profile. With no changes given it
// prompts for each text field, keeping the current value on empty input.
func (ps *ProfileService) UpdateProfile(ctx context.Context, u ProfileUpdate, opts UploadOptions) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if u.empty() {
		current, err := api.GetProfile(ctx, creds.UserID)
		if err != nil {
			return fmt.Errorf("failed to fetch your profile: %w", err)
		}
		if u, err = promptProfile(current); err != nil {
			return err
		}
		if u.empty() {
			formatter.PrintInfo("Nothing to update")
			return nil
		}
	}

	req, err := validateProfile(u)
	if err != nil {
		return err
	}

	if u.AvatarPath != "" {
		m, err := ps.uploads.Upload(ctx, creds.UserID, u.AvatarPath, upload.MediaImage, opts)
		if err != nil {
			return err
		}
		req.AvatarURL = &m.URL
	}
	if u.CoverPath != "" {
		m, err := ps.uploads.Upload(ctx, creds.UserID, u.CoverPath, upload.MediaImage, opts)
		if err != nil {
			return err
		}
		req.CoverURL = &m.URL
	}

	profile, err := api.UpdateProfile(ctx, creds.UserID, req)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	logger.Info("Profile updated", "user_id", creds.UserID)

	if output.IsJSON() {
		return output.Print("", profile)
	}
	formatter.PrintSuccess("✓ Profile updated")
	return nil
}

func promptProfile(current *api.Profile) (ProfileUpdate, error) {
	var u ProfileUpdate
	fields := []struct {
		label   string
		current string
		dst     **string
	}{
		{"Full name", current.FullName, &u.FullName},
		{"Bio", current.Bio, &u.Bio},
		{"Website", current.Website, &u.Website},
		{"Location", current.Location, &u.Location},
	}
	for _, f := range fields {
		label := f.label + ": "
		if f.current != "" {
			label = fmt.Sprintf("%s [%s]: ", f.label, formatter.Truncate(f.current, 40))
		}
		v, err := prompter.PromptString(label)
		if err != nil {
			return u, err
		}
		if v = strings.TrimSpace(v); v != "" && v != f.current {
			*f.dst = &v
		}
	}
	return u, nil
}

func validateProfile(u ProfileUpdate) (api.UpdateProfileRequest, error) {
	req := api.UpdateProfileRequest{
		FullName: u.FullName,
		Bio:      u.Bio,
		Website:  u.Website,
		Location: u.Location,
	}
	if u.FullName != nil && len([]rune(*u.FullName)) > MaxFullNameLength {
		return req, clierrors.ValidationError("full-name", fmt.Sprintf("must be at most %d characters", MaxFullNameLength))
	}
	if u.Bio != nil && len([]rune(*u.Bio)) > MaxBioLength {
		return req, clierrors.ValidationError("bio", fmt.Sprintf("must be at most %d characters", MaxBioLength))
	}
	if u.Website != nil && *u.Website != "" {
		site := *u.Website
		if !strings.Contains(site, "://") {
			site = "https://" + site
		}
		parsed, err := url.Parse(site)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return req, clierrors.ValidationError("website", "must be an http or https URL")
		}
		req.Website = &site
	}
	return req, nil
}
