package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// postColumns embeds the author, reactions and comment count with each post
const postColumns = "*,author:profiles(*),post_reactions(*),comments(count)"

// CreatePost inserts a post and returns the stored row
func CreatePost(ctx context.Context, post NewPost) (*Post, error) {
	logger.Debug("Creating post", "user_id", post.UserID, "media", post.MediaURL != "")

	var rows []Post
	if err := From("posts").Select(postColumns).Insert(ctx, post, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no post")
	}
	return &rows[0], nil
}

// GetPost retrieves a post by ID
func GetPost(ctx context.Context, postID string) (*Post, error) {
	logger.Debug("Fetching post", "post_id", postID)

	var post Post
	if _, err := From("posts").Select(postColumns).Eq("id", postID).Single().Get(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePostContent edits the text of a post
func UpdatePostContent(ctx context.Context, postID, content string) (*Post, error) {
	logger.Debug("Updating post", "post_id", postID)

	var rows []Post
	err := From("posts").Eq("id", postID).
		Update(ctx, map[string]string{"content": content}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("post not found or not yours")
	}
	return &rows[0], nil
}

// DeletePost deletes a post by ID
func DeletePost(ctx context.Context, postID string) error {
	logger.Debug("Deleting post", "post_id", postID)
	return From("posts").Eq("id", postID).Delete(ctx)
}

// ListUserPosts retrieves a user's posts with pagination
func ListUserPosts(ctx context.Context, userID string, page, pageSize int) (*PageResult[Post], error) {
	logger.Debug("Listing user posts", "user_id", userID, "page", page, "page_size", pageSize)
	return listPosts(ctx, From("posts").Eq("user_id", userID), page, pageSize)
}

// ListGroupPosts retrieves the posts made inside a group
func ListGroupPosts(ctx context.Context, groupID string, page, pageSize int) (*PageResult[Post], error) {
	logger.Debug("Listing group posts", "group_id", groupID, "page", page, "page_size", pageSize)
	return listPosts(ctx, From("posts").Eq("group_id", groupID), page, pageSize)
}

// ListPagePosts retrieves the posts published by a page
func ListPagePosts(ctx context.Context, pageID string, page, pageSize int) (*PageResult[Post], error) {
	logger.Debug("Listing page posts", "page_id", pageID, "page", page, "page_size", pageSize)
	return listPosts(ctx, From("posts").Eq("page_id", pageID), page, pageSize)
}

func listPosts(ctx context.Context, q *Query, page, pageSize int) (*PageResult[Post], error) {
	var posts []Post
	total, err := q.Select(postColumns).
		Order("created_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &posts)
	if err != nil {
		return nil, err
	}
	return &PageResult[Post]{Items: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// CommentCount returns the embedded comment count, if it was selected
func (p *Post) CommentCount() int {
	if len(p.Comments) == 0 {
		return 0
	}
	return p.Comments[0].Count
}

// ReactionCounts tallies the embedded reactions by type
func (p *Post) ReactionCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range p.Reactions {
		counts[r.Reaction]++
	}
	return counts
}

// ReactionOf returns the reaction userID left on the post, or ""
func (p *Post) ReactionOf(userID string) string {
	for _, r := range p.Reactions {
		if r.UserID == userID {
			return r.Reaction
		}
	}
	return ""
}
