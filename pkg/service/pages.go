package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// PageService provides page operations
type PageService struct{}

// NewPageService creates a new page service
func NewPageService() *PageService {
	return &PageService{}
}

// CreatePage creates a page owned by you
func (ps *PageService) CreatePage(ctx context.Context, name, description, category string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if name == "" {
		if name, err = prompter.PromptRequired("Page name: "); err != nil {
			return err
		}
	}
	if name, err = requireText("name", name); err != nil {
		return err
	}

	page, err := api.CreatePage(ctx, api.NewPage{
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    strings.ToLower(strings.TrimSpace(category)),
		CreatedBy:   creds.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", page)
	}
	formatter.PrintSuccess("✓ Page %q created (%s)", page.Name, page.ID)
	return nil
}

// ListPages lists pages, optionally within one category
func (ps *PageService) ListPages(ctx context.Context, category string, page, pageSize int) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	pages, err := api.ListPages(ctx, strings.ToLower(category), page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pages: %w", err)
	}
	if !output.IsJSON() && len(pages.Items) == 0 {
		formatter.Printf("No pages found.\n")
		return nil
	}

	rows := make([][]string, 0, len(pages.Items))
	for _, p := range pages.Items {
		rows = append(rows, []string{p.Name, p.Category, formatter.Count(p.FollowersCount), formatter.Truncate(p.Description, 40), p.ID})
	}
	if err := output.PrintList("📄 Pages", pages.Items, []string{"Name", "Category", "Followers", "About", "ID"}, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(pages.Items), pages.Total, pages.Page, pages.PageSize)
	}
	return nil
}

func getPage(ctx context.Context, pageID string) (*api.Page, error) {
	page, err := api.GetPage(ctx, pageID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("page", pageID)
		}
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return page, nil
}

// ViewPage shows a page, whether you follow it and its latest posts
func (ps *PageService) ViewPage(ctx context.Context, pageID string, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	page, err := getPage(ctx, pageID)
	if err != nil {
		return err
	}
	following, err := api.IsFollowingPage(ctx, pageID, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to check follow: %w", err)
	}
	posts, err := api.ListPagePosts(ctx, pageID, 1, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch page posts: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", map[string]interface{}{
			"page":      page,
			"following": following,
			"posts":     posts,
		})
	}

	formatter.Header(fmt.Sprintf("📄 %s", page.Name))
	if page.Description != "" {
		formatter.Printf("%s\n", page.Description)
	}
	meta := []string{formatter.Pluralize(page.FollowersCount, "follower")}
	if page.Category != "" {
		meta = append([]string{page.Category}, meta...)
	}
	if following {
		meta = append(meta, "following")
	}
	if page.CreatedBy == creds.UserID {
		meta = append(meta, "owner")
	}
	formatter.Muted.Fprintln(output.Writer, strings.Join(meta, " · "))
	return displayPosts("Page Posts", posts, creds.UserID, "No posts on this page yet.")
}

// FollowPage follows a page
func (ps *PageService) FollowPage(ctx context.Context, pageID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	page, err := getPage(ctx, pageID)
	if err != nil {
		return err
	}
	if err := api.FollowPage(ctx, pageID, creds.UserID); err != nil {
		return fmt.Errorf("failed to follow page: %w", err)
	}
	formatter.PrintSuccess("✓ Following %s", page.Name)
	return nil
}

// UnfollowPage stops following a page
func (ps *PageService) UnfollowPage(ctx context.Context, pageID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.UnfollowPage(ctx, pageID, creds.UserID); err != nil {
		return fmt.Errorf("failed to unfollow page: %w", err)
	}
	formatter.PrintSuccess("✓ Unfollowed")
	return nil
}
