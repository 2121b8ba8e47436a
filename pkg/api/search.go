package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// SearchResults groups matches across searchable tables
type SearchResults struct {
	Profiles []Profile `json:"profiles"`
	Posts    []Post    `json:"posts"`
	Groups   []Group   `json:"groups"`
	Pages    []Page    `json:"pages"`
}

func likePattern(query string) string {
	return "*" + query + "*"
}

// SearchUsers matches usernames and full names case-insensitively
func SearchUsers(ctx context.Context, query string, limit int) ([]Profile, error) {
	logger.Debug("Searching users", "query", query, "limit", limit)

	p := quoteValue(likePattern(query))
	var profiles []Profile
	_, err := From("profiles").
		Select("*").
		Or("username.ilike." + p + ",full_name.ilike." + p).
		Order("username", true).
		Limit(limit).
		Get(ctx, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// SearchPosts matches post text
func SearchPosts(ctx context.Context, query string, limit int) ([]Post, error) {
	logger.Debug("Searching posts", "query", query, "limit", limit)

	var posts []Post
	_, err := From("posts").
		Select(postColumns).
		ILike("content", likePattern(query)).
		Order("created_at", false).
		Limit(limit).
		Get(ctx, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Search runs every per-table search and combines the results
func Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	users, err := SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	posts, err := SearchPosts(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	groups, err := ListGroups(ctx, query, 1, limit)
	if err != nil {
		return nil, err
	}

	var pages []Page
	if _, err := From("pages").Select("*").ILike("name", likePattern(query)).Limit(limit).Get(ctx, &pages); err != nil {
		return nil, err
	}

	return &SearchResults{Profiles: users, Posts: posts, Groups: groups.Items, Pages: pages}, nil
}
