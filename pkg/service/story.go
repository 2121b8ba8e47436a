package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// MaxCaptionLength bounds story captions
const MaxCaptionLength = 200

// StoryService provides story operations
type StoryService struct {
	uploads *UploadService
}

// NewStoryService creates a new story service
func NewStoryService() *StoryService {
	return &StoryService{uploads: NewUploadService()}
}

// CreateStory uploads an image or video and posts it as a 24 hour story
func (ss *StoryService) CreateStory(ctx context.Context, mediaPath, caption string, opts UploadOptions) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	caption = strings.TrimSpace(caption)
	if len([]rune(caption)) > MaxCaptionLength {
		return clierrors.ValidationError("caption", fmt.Sprintf("must be at most %d characters", MaxCaptionLength))
	}

	media, err := ss.uploads.Upload(ctx, creds.UserID, mediaPath, "", opts)
	if err != nil {
		return err
	}

	story, err := api.CreateStory(ctx, creds.UserID, media.URL, media.Kind, caption)
	if err != nil {
		discardMedia(ctx, opts, media)
		return fmt.Errorf("failed to create story: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", story)
	}
	formatter.PrintSuccess("✓ Story posted (%s)", story.ID)
	formatter.PrintInfo("Visible until %s", story.ExpiresAt.Local().Format("Mon 15:04"))
	return nil
}

// ListStories shows active stories grouped by author
func (ss *StoryService) ListStories(ctx context.Context, limit int) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	stories, err := api.GetActiveStories(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch stories: %w", err)
	}
	return ss.displayStories("📸 Active Stories", stories, "No active stories.")
}

// ListUserStories shows one user's active stories, yours when username is empty
func (ss *StoryService) ListUserStories(ctx context.Context, username string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	userID, title := creds.UserID, "📸 Your Stories"
	if username != "" {
		profile, err := lookupProfile(ctx, username)
		if err != nil {
			return err
		}
		userID, title = profile.ID, fmt.Sprintf("📸 Stories by @%s", profile.Username)
	}

	stories, err := api.GetUserStories(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch stories: %w", err)
	}
	return ss.displayStories(title, stories, "No active stories.")
}

func (ss *StoryService) displayStories(title string, stories []api.Story, empty string) error {
	rows := make([][]string, 0, len(stories))
	for _, s := range stories {
		rows = append(rows, []string{
			handle(s.Author),
			s.MediaType,
			formatter.Truncate(s.Caption, 40),
			formatter.TimeAgo(s.CreatedAt),
			expiresIn(s.ExpiresAt),
			s.ID,
		})
	}
	if !output.IsJSON() && len(stories) == 0 {
		formatter.Printf("%s\n", empty)
		return nil
	}
	return output.PrintList(title, stories, []string{"Author", "Type", "Caption", "Posted", "Expires", "ID"}, rows)
}

func expiresIn(t time.Time) string {
	left := time.Until(t)
	if left <= 0 {
		return "expired"
	}
	if left < time.Hour {
		return fmt.Sprintf("in %dm", int(left.Minutes()))
	}
	return fmt.Sprintf("in %dh", int(left.Hours()))
}

// ViewStory shows a story and records that you saw it. Viewing your own
// story records nothing.
func (ss *StoryService) ViewStory(ctx context.Context, storyID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	story, err := api.GetStory(ctx, storyID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("story", storyID)
		}
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	if !story.ExpiresAt.After(time.Now()) {
		return clierrors.NotFoundError("story", storyID).WithSuggestion("Stories disappear 24 hours after they are posted.")
	}

	if story.UserID != creds.UserID {
		if err := api.MarkStoryViewed(ctx, storyID, creds.UserID); err != nil {
			logger.Warn("Failed to record story view", "story_id", storyID, "error", err)
		}
	}

	if output.IsJSON() {
		return output.Print("", story)
	}
	formatter.Header(fmt.Sprintf("📸 Story by %s", displayName(story.Author)))
	icon := "🖼️"
	if story.MediaType == "video" {
		icon = "🎬"
	}
	formatter.Printf("%s %s\n", icon, story.MediaURL)
	if story.Caption != "" {
		formatter.Printf("%s\n", story.Caption)
	}
	formatter.Muted.Fprintf(output.Writer, "Posted %s · expires %s\n", formatter.TimeAgo(story.CreatedAt), expiresIn(story.ExpiresAt))
	return nil
}

// ListViewers shows who has seen one of your stories
func (ss *StoryService) ListViewers(ctx context.Context, storyID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	story, err := api.GetStory(ctx, storyID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("story", storyID)
		}
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	if story.UserID != creds.UserID {
		forbidden := clierrors.ForbiddenError()
		forbidden.Message = "Only the author can see who viewed a story"
		return forbidden
	}

	views, err := api.GetStoryViewers(ctx, storyID)
	if err != nil {
		return fmt.Errorf("failed to fetch viewers: %w", err)
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{displayName(v.Viewer), formatter.TimeAgo(v.ViewedAt)})
	}
	return output.PrintList(fmt.Sprintf("👀 %s", formatter.Pluralize(len(views), "viewer")), views, []string{"Viewer", "Seen"}, rows)
}

// DeleteStory removes one of your stories
func (ss *StoryService) DeleteStory(ctx context.Context, storyID string, force bool) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	story, err := api.GetStory(ctx, storyID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("story", storyID)
		}
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	if story.UserID != creds.UserID {
		forbidden := clierrors.ForbiddenError()
		forbidden.Message = "You can only delete your own stories"
		return forbidden
	}

	if !force {
		confirm, err := prompter.PromptConfirm("Delete this story?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := api.DeleteStory(ctx, storyID); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	formatter.PrintSuccess("✓ Story deleted")
	return nil
}
