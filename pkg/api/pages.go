package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// CreatePage inserts a page
func CreatePage(ctx context.Context, p NewPage) (*Page, error) {
	logger.Debug("Creating page", "name", p.Name, "category", p.Category)

	var rows []Page
	if err := From("pages").Insert(ctx, p, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no page")
	}
	return &rows[0], nil
}

// ListPages returns pages, optionally filtered by category
func ListPages(ctx context.Context, category string, page, pageSize int) (*PageResult[Page], error) {
	logger.Debug("Listing pages", "category", category, "page", page)

	q := From("pages").Select("*").Order("followers_count", false).Page(page, pageSize).Count()
	if category != "" {
		q.Eq("category", category)
	}

	var pages []Page
	total, err := q.Get(ctx, &pages)
	if err != nil {
		return nil, err
	}
	return &PageResult[Page]{Items: pages, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetPage retrieves a page by ID
func GetPage(ctx context.Context, pageID string) (*Page, error) {
	logger.Debug("Fetching page", "page_id", pageID)

	var p Page
	if _, err := From("pages").Select("*").Eq("id", pageID).Single().Get(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FollowPage makes the caller a follower; following twice is a no-op
func FollowPage(ctx context.Context, pageID, userID string) error {
	logger.Debug("Following page", "page_id", pageID)

	row := map[string]string{"page_id": pageID, "user_id": userID}
	return From("page_followers").OnConflict("page_id,user_id").Upsert(ctx, row, nil)
}

// UnfollowPage removes the caller's follow
func UnfollowPage(ctx context.Context, pageID, userID string) error {
	logger.Debug("Unfollowing page", "page_id", pageID)
	return From("page_followers").Eq("page_id", pageID).Eq("user_id", userID).Delete(ctx)
}

// IsFollowingPage reports whether userID follows the page
func IsFollowingPage(ctx context.Context, pageID, userID string) (bool, error) {
	n, err := From("page_followers").Eq("page_id", pageID).Eq("user_id", userID).CountRows(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
