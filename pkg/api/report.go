package api

import (
	"context"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// ReportTargets lists what can be reported
var ReportTargets = []string{"post", "comment", "user"}

// ReportContent submits a report for a piece of content
func ReportContent(ctx context.Context, r NewReport) error {
	logger.Debug("Submitting report", "type", r.TargetType, "target_id", r.TargetID)
	return From("reports").Insert(ctx, r, nil)
}

// GetReports lists reports, optionally filtered by status (admin only)
func GetReports(ctx context.Context, status string, page, pageSize int) (*PageResult[Report], error) {
	logger.Debug("Fetching reports", "status", status, "page", page)

	q := From("reports").
		Select("*,reporter:profiles!reporter_id(*)").
		Order("created_at", false).
		Page(page, pageSize).
		Count()
	if status != "" {
		q.Eq("status", status)
	}

	var reports []Report
	total, err := q.Get(ctx, &reports)
	if err != nil {
		return nil, err
	}
	return &PageResult[Report]{Items: reports, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetReport retrieves a single report
func GetReport(ctx context.Context, reportID string) (*Report, error) {
	logger.Debug("Fetching report", "report_id", reportID)

	var report Report
	_, err := From("reports").
		Select("*,reporter:profiles!reporter_id(*)").
		Eq("id", reportID).
		Single().
		Get(ctx, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ResolveReport closes a report as resolved or dismissed (admin only)
func ResolveReport(ctx context.Context, reportID, adminID string, dismiss bool) error {
	status := ReportResolved
	if dismiss {
		status = ReportDismissed
	}
	logger.Debug("Closing report", "report_id", reportID, "status", status)

	patch := map[string]interface{}{
		"status":      status,
		"resolved_by": adminID,
		"resolved_at": time.Now().UTC(),
	}
	return From("reports").Eq("id", reportID).Update(ctx, patch, nil)
}
