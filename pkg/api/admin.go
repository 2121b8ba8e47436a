package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// DashboardTables are the tables counted on the admin dashboard
var DashboardTables = []string{
	"profiles", "posts", "comments", "stories", "videos",
	"groups", "pages", "messages", "reports",
}

// DashboardStats holds row counts per table plus open reports
type DashboardStats struct {
	Counts         map[string]int `json:"counts"`
	PendingReports int            `json:"pending_reports"`
	BannedUsers    int            `json:"banned_users"`
}

// GetDashboardStats counts rows in each dashboard table (admin only)
func GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	logger.Debug("Fetching dashboard stats")

	stats := &DashboardStats{Counts: make(map[string]int, len(DashboardTables))}
	for _, table := range DashboardTables {
		n, err := From(table).CountRows(ctx)
		if err != nil {
			return nil, err
		}
		stats.Counts[table] = n
	}

	var err error
	if stats.PendingReports, err = From("reports").Eq("status", ReportPending).CountRows(ctx); err != nil {
		return nil, err
	}
	if stats.BannedUsers, err = From("profiles").Is("is_banned", "true").CountRows(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// SetUserBanned bans or unbans a user (admin only)
func SetUserBanned(ctx context.Context, userID string, banned bool) error {
	logger.Debug("Setting ban", "user_id", userID, "banned", banned)

	var rows []Profile
	if err := From("profiles").Eq("id", userID).Update(ctx, map[string]bool{"is_banned": banned}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound("user not found")
	}
	return nil
}

// AdminDeletePost removes any post regardless of author (admin only)
func AdminDeletePost(ctx context.Context, postID string) error {
	logger.Debug("Admin deleting post", "post_id", postID)
	return DeletePost(ctx, postID)
}
