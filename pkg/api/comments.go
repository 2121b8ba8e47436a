package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const commentColumns = "*,author:profiles(*)"

// CreateComment adds a comment, or a reply when ParentID is set
func CreateComment(ctx context.Context, c NewComment) (*Comment, error) {
	logger.Debug("Creating comment", "post_id", c.PostID, "reply", c.ParentID != nil)

	var rows []Comment
	if err := From("comments").Select(commentColumns).Insert(ctx, c, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no comment")
	}
	return &rows[0], nil
}

// GetComments lists the comments on a post in thread order
func GetComments(ctx context.Context, postID string, page, pageSize int) (*PageResult[Comment], error) {
	logger.Debug("Fetching comments", "post_id", postID, "page", page)

	var comments []Comment
	total, err := From("comments").
		Select(commentColumns).
		Eq("post_id", postID).
		Order("created_at", true).
		Page(page, pageSize).
		Count().
		Get(ctx, &comments)
	if err != nil {
		return nil, err
	}
	return &PageResult[Comment]{Items: comments, Total: total, Page: page, PageSize: pageSize}, nil
}

// DeleteComment deletes one of the caller's comments
func DeleteComment(ctx context.Context, commentID, userID string) error {
	logger.Debug("Deleting comment", "comment_id", commentID)
	return From("comments").Eq("id", commentID).Eq("user_id", userID).Delete(ctx)
}
