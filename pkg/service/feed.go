package service

import (
	"context"
	"fmt"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
)

// FeedService provides feed-related operations
type FeedService struct{}

// NewFeedService creates a new feed service
func NewFeedService() *FeedService {
	return &FeedService{}
}

// ViewFeed displays the home timeline, newest first
func (fs *FeedService) ViewFeed(ctx context.Context, page, pageSize int) error {
	logger.Debug("Viewing feed", "page", page)

	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	feed, err := api.GetFeed(ctx, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	return displayPosts("Your Feed", feed, creds.UserID, "No posts in your feed.")
}

// ViewSince displays feed posts newer than since
func (fs *FeedService) ViewSince(ctx context.Context, since time.Duration, limit int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-since).UTC()
	posts, err := api.GetFeedSince(ctx, cutoff.Format(time.RFC3339), limit)
	if err != nil {
		return fmt.Errorf("failed to fetch new posts: %w", err)
	}

	if output.IsJSON() {
		return output.PrintList("", posts, nil, nil)
	}
	if len(posts) == 0 {
		formatter.Printf("Nothing new in the last %s.\n", since)
		return nil
	}

	formatter.Header(fmt.Sprintf("🆕 %s in the last %s", formatter.Pluralize(len(posts), "post"), since))
	for i := range posts {
		displayPost(&posts[i], creds.UserID)
		formatter.Separator()
	}
	return nil
}
