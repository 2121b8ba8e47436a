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
)

// Search scopes
const (
	SearchAll   = "all"
	SearchUsers = "users"
	SearchPosts = "posts"
)

// SearchService searches users, posts, groups and pages
type SearchService struct{}

// NewSearchService creates a new search service
func NewSearchService() *SearchService {
	return &SearchService{}
}

// Search runs query in scope and prints the matches per kind
func (ss *SearchService) Search(ctx context.Context, query, scope string, limit int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if query, err = requireText("query", query); err != nil {
		return err
	}
	// PostgREST reserves these inside or=() filters
	query = strings.NewReplacer(",", " ", "(", " ", ")", " ").Replace(query)

	logger.Debug("Searching", "query", query, "scope", scope)

	var results *api.SearchResults
	switch scope {
	case "", SearchAll:
		results, err = api.Search(ctx, query, limit)
	case SearchUsers:
		var users []api.Profile
		users, err = api.SearchUsers(ctx, query, limit)
		results = &api.SearchResults{Profiles: users}
	case SearchPosts:
		var posts []api.Post
		posts, err = api.SearchPosts(ctx, query, limit)
		results = &api.SearchResults{Posts: posts}
	default:
		return clierrors.ValidationError("type", "must be all, users or posts")
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", results)
	}

	found := len(results.Profiles) + len(results.Posts) + len(results.Groups) + len(results.Pages)
	if found == 0 {
		formatter.Printf("No results for %q\n", query)
		return nil
	}
	formatter.Header(fmt.Sprintf("🔍 %s for %q", formatter.Pluralize(found, "result"), query))

	if len(results.Profiles) > 0 {
		rows := make([][]string, 0, len(results.Profiles))
		for _, p := range results.Profiles {
			rows = append(rows, []string{"@" + p.Username, p.FullName, formatter.Truncate(p.Bio, 40)})
		}
		if err := output.PrintList("People", results.Profiles, []string{"Username", "Name", "Bio"}, rows); err != nil {
			return err
		}
		formatter.Printf("\n")
	}
	if len(results.Posts) > 0 {
		formatter.Bold.Fprintln(output.Writer, "Posts")
		for i := range results.Posts {
			displayPost(&results.Posts[i], creds.UserID)
			formatter.Separator()
		}
	}
	if len(results.Groups) > 0 {
		rows := make([][]string, 0, len(results.Groups))
		for _, g := range results.Groups {
			rows = append(rows, []string{g.Name, g.Privacy, formatter.Count(g.MembersCount), g.ID})
		}
		if err := output.PrintList("Groups", results.Groups, []string{"Name", "Privacy", "Members", "ID"}, rows); err != nil {
			return err
		}
		formatter.Printf("\n")
	}
	if len(results.Pages) > 0 {
		rows := make([][]string, 0, len(results.Pages))
		for _, p := range results.Pages {
			rows = append(rows, []string{p.Name, p.Category, formatter.Count(p.FollowersCount), p.ID})
		}
		if err := output.PrintList("Pages", results.Pages, []string{"Name", "Category", "Followers", "ID"}, rows); err != nil {
			return err
		}
	}
	return nil
}
