package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// Post privacy levels
const (
	PrivacyPublic  = "public"
	PrivacyFriends = "friends"
	PrivacyOnlyMe  = "only_me"
)

// MaxPostLength bounds post text
const MaxPostLength = 5000

// PostInput describes a post to create
type PostInput struct {
	Content   string
	MediaPath string
	GroupID   string
	PageID    string
	Privacy   string
}

// PostService provides post operations
type PostService struct {
	uploads *UploadService
}

// NewPostService creates a new post service
func NewPostService() *PostService {
	return &PostService{uploads: NewUploadService()}
}

func validPrivacy(p string) bool {
	return p == PrivacyPublic || p == PrivacyFriends || p == PrivacyOnlyMe
}

// CreatePost publishes a post, uploading its media first when given
func (s *PostService) CreatePost(ctx context.Context, in PostInput, opts UploadOptions) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if in.Privacy == "" {
		in.Privacy = PrivacyPublic
	}
	if !validPrivacy(in.Privacy) {
		return clierrors.ValidationError("privacy", "must be public, friends or only_me")
	}
	if in.GroupID != "" && in.PageID != "" {
		return clierrors.ValidationError("post", "cannot target a group and a page at once")
	}

	if in.Content == "" && in.MediaPath == "" {
		in.Content, err = prompter.PromptMultilineString("What's on your mind? (empty line to finish)", 50)
		if err != nil {
			return err
		}
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && in.MediaPath == "" {
		return clierrors.ValidationError("content", "a post needs text or media")
	}
	if len([]rune(in.Content)) > MaxPostLength {
		return clierrors.ValidationError("content", fmt.Sprintf("must be at most %d characters", MaxPostLength))
	}

	post := api.NewPost{
		UserID:  creds.UserID,
		Content: in.Content,
		Privacy: in.Privacy,
	}
	if in.GroupID != "" {
		member, err := api.IsGroupMember(ctx, in.GroupID, creds.UserID)
		if err != nil {
			return fmt.Errorf("failed to check group membership: %w", err)
		}
		if !member {
			forbidden := clierrors.ForbiddenError()
			forbidden.Message = "Join the group before posting in it"
			return forbidden
		}
		post.GroupID = &in.GroupID
	}
	if in.PageID != "" {
		page, err := api.GetPage(ctx, in.PageID)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		if page.CreatedBy != creds.UserID {
			forbidden := clierrors.ForbiddenError()
			forbidden.Message = "Only the page owner can post as the page"
			return forbidden
		}
		post.PageID = &in.PageID
	}

	var media *MediaUpload
	if in.MediaPath != "" {
		media, err = s.uploads.Upload(ctx, creds.UserID, in.MediaPath, "", opts)
		if err != nil {
			return err
		}
		post.MediaURL = media.URL
		post.MediaType = media.Kind
	}

	created, err := api.CreatePost(ctx, post)
	if err != nil {
		if media != nil {
			discardMedia(ctx, opts, media)
		}
		return fmt.Errorf("failed to create post: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", created)
	}
	formatter.PrintSuccess("✓ Post published")
	displayPost(created, creds.UserID)
	return nil
}

// discardMedia removes an uploaded object whose post was never created.
// Only the backend's own storage can be cleaned up from here.
func discardMedia(ctx context.Context, opts UploadOptions, media *MediaUpload) {
	sink := opts.Sink
	if sink == "" {
		sink = config.GetString("upload.sink")
	}
	if sink != "" && sink != SinkHTTP {
		return
	}
	if err := api.DeleteObject(ctx, config.GetString("storage.bucket"), media.Key); err != nil {
		logger.Warn("Failed to remove orphaned upload", "key", media.Key, "error", err)
	}
}

// ViewPost shows a post with its reactions and first comments
func (s *PostService) ViewPost(ctx context.Context, postID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	post, err := api.GetPost(ctx, postID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("post", postID)
		}
		return fmt.Errorf("failed to fetch post: %w", err)
	}

	comments, err := api.GetComments(ctx, postID, 1, 10)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", map[string]interface{}{
			"post":     post,
			"comments": comments,
		})
	}

	formatter.Header("📝 Post")
	displayPost(post, creds.UserID)
	if len(comments.Items) > 0 {
		formatter.Separator()
		displayComments(comments.Items)
		if comments.Total > len(comments.Items) {
			formatter.Muted.Fprintf(output.Writer, "… %d more, see 'socialhub comment list %s'\n", comments.Total-len(comments.Items), postID)
		}
	}
	return nil
}

// ownPost fetches a post and checks the signed-in user wrote it
func ownPost(ctx context.Context, postID, userID string) (*api.Post, error) {
	post, err := api.GetPost(ctx, postID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("post", postID)
		}
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	if post.UserID != userID {
		forbidden := clierrors.ForbiddenError()
		forbidden.Message = "You can only change your own posts"
		return nil, forbidden
	}
	return post, nil
}

// EditPost replaces the text of one of your posts
func (s *PostService) EditPost(ctx context.Context, postID, content string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	post, err := ownPost(ctx, postID, creds.UserID)
	if err != nil {
		return err
	}

	if content == "" {
		formatter.Printf("Current text:\n%s\n\n", post.Content)
		if content, err = prompter.PromptMultilineString("New text (empty line to finish)", 50); err != nil {
			return err
		}
	}
	content = strings.TrimSpace(content)
	if content == "" && post.MediaURL == "" {
		return clierrors.ValidationError("content", "a post needs text or media")
	}
	if len([]rune(content)) > MaxPostLength {
		return clierrors.ValidationError("content", fmt.Sprintf("must be at most %d characters", MaxPostLength))
	}

	updated, err := api.UpdatePostContent(ctx, postID, content)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if output.IsJSON() {
		return output.Print("", updated)
	}
	formatter.PrintSuccess("✓ Post updated")
	return nil
}

// DeletePost removes one of your posts
func (s *PostService) DeletePost(ctx context.Context, postID string, force bool) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	post, err := ownPost(ctx, postID, creds.UserID)
	if err != nil {
		return err
	}

	if !force {
		confirm, err := prompter.PromptConfirm(fmt.Sprintf("Delete post %q?", formatter.Truncate(post.Content, 40)))
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := api.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	formatter.PrintSuccess("✓ Post deleted")
	return nil
}

// ListUserPosts shows a user's posts, yours when username is empty
func (s *PostService) ListUserPosts(ctx context.Context, username string, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	userID := creds.UserID
	title := "Your Posts"
	if username != "" {
		profile, err := lookupProfile(ctx, username)
		if err != nil {
			return err
		}
		userID = profile.ID
		title = fmt.Sprintf("Posts by @%s", profile.Username)
	}

	posts, err := api.ListUserPosts(ctx, userID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	return displayPosts(title, posts, creds.UserID, "No posts yet.")
}

// lookupProfile resolves a username, tolerating a leading @
func lookupProfile(ctx context.Context, username string) (*api.Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, clierrors.ValidationError("username", "cannot be empty")
	}
	profile, err := api.GetProfileByUsername(ctx, username)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("user", "@"+username)
		}
		return nil, fmt.Errorf("failed to look up @%s: %w", username, err)
	}
	return profile, nil
}
