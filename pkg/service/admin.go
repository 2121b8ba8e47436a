package service

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// AdminService is the admin panel. Every operation requires the admin role.
type AdminService struct{}

// NewAdminService creates a new admin service
func NewAdminService() *AdminService {
	return &AdminService{}
}

// Dashboard shows row counts per table and the moderation backlog
func (as *AdminService) Dashboard(ctx context.Context) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}

	stats, err := api.GetDashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch dashboard stats: %w", err)
	}
	if output.IsJSON() {
		return output.Print("", stats)
	}

	rows := make([][]string, 0, len(stats.Counts))
	for _, table := range api.DashboardTables {
		rows = append(rows, []string{table, formatter.Count(stats.Counts[table])})
	}
	formatter.Header("🛡️  Admin Dashboard")
	if err := output.PrintList("", stats.Counts, []string{"Table", "Rows"}, rows); err != nil {
		return err
	}
	formatter.Separator()
	formatter.Printf("Pending reports: %s\n", formatter.Count(stats.PendingReports))
	formatter.Printf("Banned users:    %s\n", formatter.Count(stats.BannedUsers))
	return nil
}

// ListUsers lists profiles, optionally only banned ones
func (as *AdminService) ListUsers(ctx context.Context, bannedOnly bool, page, pageSize int) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}

	users, err := api.ListProfiles(ctx, page, pageSize, bannedOnly)
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	title := "👤 Users"
	if bannedOnly {
		title = "🚫 Banned Users"
	}
	if err := output.PrintList(title, users.Items, profileHeaders, profileRows(users.Items)); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(users.Items), users.Total, users.Page, users.PageSize)
	}
	return nil
}

// SetBanned bans or unbans a user by username
func (as *AdminService) SetBanned(ctx context.Context, username string, banned bool) error {
	creds, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	profile, err := lookupProfile(ctx, username)
	if err != nil {
		return err
	}
	if profile.ID == creds.UserID && banned {
		return clierrors.ValidationError("username", "you cannot ban yourself")
	}
	if profile.IsBanned == banned {
		state := "not banned"
		if banned {
			state = "already banned"
		}
		formatter.PrintInfo("@%s is %s", profile.Username, state)
		return nil
	}

	if err := api.SetUserBanned(ctx, profile.ID, banned); err != nil {
		return fmt.Errorf("failed to update ban: %w", err)
	}
	logger.Info("Ban updated", "user_id", profile.ID, "banned", banned, "admin_id", creds.UserID)
	if banned {
		formatter.PrintSuccess("🚫 @%s banned", profile.Username)
	} else {
		formatter.PrintSuccess("✓ @%s unbanned", profile.Username)
	}
	return nil
}

// DeletePost removes any post
func (as *AdminService) DeletePost(ctx context.Context, postID string, force bool) error {
	creds, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	post, err := api.GetPost(ctx, postID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("post", postID)
		}
		return fmt.Errorf("failed to fetch post: %w", err)
	}

	if !force {
		displayPost(post, creds.UserID)
		confirm, err := prompter.PromptConfirm("Delete this post?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := api.AdminDeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	logger.Info("Post removed by admin", "post_id", postID, "admin_id", creds.UserID)
	formatter.PrintSuccess("✓ Post deleted")
	return nil
}

// ListReports lists reports, by default the pending ones
func (as *AdminService) ListReports(ctx context.Context, status string, page, pageSize int) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	switch status {
	case "all":
		status = ""
	case "", api.ReportPending, api.ReportResolved, api.ReportDismissed:
	default:
		return clierrors.ValidationError("status", "must be pending, resolved, dismissed or all")
	}

	reports, err := api.GetReports(ctx, status, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch reports: %w", err)
	}
	if !output.IsJSON() && len(reports.Items) == 0 {
		formatter.Printf("No reports.\n")
		return nil
	}

	rows := make([][]string, 0, len(reports.Items))
	for _, r := range reports.Items {
		rows = append(rows, []string{
			r.TargetType,
			r.TargetID,
			formatter.Truncate(r.Reason, 30),
			handle(r.Reporter),
			r.Status,
			formatter.TimeAgo(r.CreatedAt),
			r.ID,
		})
	}
	if err := output.PrintList("🚩 Reports", reports.Items, []string{"Type", "Target", "Reason", "Reporter", "Status", "Filed", "ID"}, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(reports.Items), reports.Total, reports.Page, reports.PageSize)
	}
	return nil
}

// ResolveReport closes a report. Resolving a post report can also remove
// the post.
func (as *AdminService) ResolveReport(ctx context.Context, reportID string, dismiss, removeContent bool) error {
	creds, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	report, err := api.GetReport(ctx, reportID)
	if err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("report", reportID)
		}
		return fmt.Errorf("failed to fetch report: %w", err)
	}
	if report.Status != api.ReportPending {
		formatter.PrintInfo("Report is already %s", report.Status)
		return nil
	}

	if removeContent && !dismiss {
		if report.TargetType != "post" {
			return clierrors.ValidationError("remove", "only reported posts can be removed from here")
		}
		if err := api.AdminDeletePost(ctx, report.TargetID); err != nil && !api.IsNotFound(err) {
			return fmt.Errorf("failed to delete reported post: %w", err)
		}
	}

	if err := api.ResolveReport(ctx, reportID, creds.UserID, dismiss); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if dismiss {
		formatter.PrintSuccess("✓ Report dismissed")
	} else {
		formatter.PrintSuccess("✓ Report resolved")
	}
	return nil
}
