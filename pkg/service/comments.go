package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// MaxCommentLength bounds comment text
const MaxCommentLength = 2000

// CommentService provides comment operations
type CommentService struct{}

// NewCommentService creates a new comment service
func NewCommentService() *CommentService {
	return &CommentService{}
}

// AddComment comments on a post, or replies to parentID when set
func (cs *CommentService) AddComment(ctx context.Context, postID, content, parentID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if content == "" {
		if content, err = prompter.PromptString("Comment: "); err != nil {
			return err
		}
	}
	if content, err = requireText("comment", content); err != nil {
		return err
	}
	if len([]rune(content)) > MaxCommentLength {
		return clierrors.ValidationError("comment", fmt.Sprintf("must be at most %d characters", MaxCommentLength))
	}

	c := api.NewComment{PostID: postID, UserID: creds.UserID, Content: content}
	if parentID != "" {
		c.ParentID = &parentID
	}

	logger.Debug("Adding comment", "post_id", postID, "parent_id", parentID)
	comment, err := api.CreateComment(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", comment)
	}
	if parentID != "" {
		formatter.PrintSuccess("✓ Reply added (%s)", comment.ID)
	} else {
		formatter.PrintSuccess("✓ Comment added (%s)", comment.ID)
	}
	return nil
}

// ListComments shows a post's comments with replies nested under their parent
func (cs *CommentService) ListComments(ctx context.Context, postID string, page, pageSize int) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	comments, err := api.GetComments(ctx, postID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", comments)
	}
	if len(comments.Items) == 0 {
		formatter.Printf("No comments yet.\n")
		return nil
	}

	formatter.Header(fmt.Sprintf("💬 Comments (%d)", comments.Total))
	displayComments(comments.Items)
	pageFooter(len(comments.Items), comments.Total, comments.Page, comments.PageSize)
	return nil
}

// DeleteComment removes one of your comments
func (cs *CommentService) DeleteComment(ctx context.Context, commentID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.DeleteComment(ctx, commentID, creds.UserID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	formatter.PrintSuccess("✓ Comment deleted")
	return nil
}

// displayComments prints top-level comments in order, each followed by its
// replies. Replies whose parent is not on this page print at top level.
func displayComments(comments []api.Comment) {
	present := make(map[string]bool, len(comments))
	replies := make(map[string][]api.Comment)
	for _, c := range comments {
		present[c.ID] = true
	}
	var roots []api.Comment
	for _, c := range comments {
		if c.ParentID != nil && present[*c.ParentID] {
			replies[*c.ParentID] = append(replies[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	var walk func(c api.Comment, depth int)
	walk = func(c api.Comment, depth int) {
		indent := strings.Repeat("  ", depth)
		prefix := ""
		if depth > 0 {
			prefix = "↳ "
		}
		formatter.Bold.Fprintf(output.Writer, "%s%s%s", indent, prefix, handle(c.Author))
		formatter.Muted.Fprintf(output.Writer, " · %s · %s\n", formatter.TimeAgo(c.CreatedAt), c.ID)
		formatter.Printf("%s%s\n", indent, c.Content)
		for _, r := range replies[c.ID] {
			walk(r, depth+1)
		}
	}
	for _, c := range roots {
		walk(c, 0)
	}
}
