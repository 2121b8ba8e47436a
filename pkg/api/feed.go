package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// GetFeed returns the home timeline: public posts outside groups, newest
// first. Row-level security on the backend hides what the caller may not see.
func GetFeed(ctx context.Context, page, pageSize int) (*PageResult[Post], error) {
	logger.Debug("Fetching feed", "page", page, "page_size", pageSize)
	return listPosts(ctx, From("posts").Is("group_id", "null"), page, pageSize)
}

// GetFeedSince returns feed posts created after the given RFC 3339 timestamp
func GetFeedSince(ctx context.Context, since string, limit int) ([]Post, error) {
	logger.Debug("Fetching new feed posts", "since", since)

	var posts []Post
	_, err := From("posts").
		Select(postColumns).
		Is("group_id", "null").
		Gt("created_at", since).
		Order("created_at", false).
		Limit(limit).
		Get(ctx, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}
