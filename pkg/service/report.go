package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// ReportReasons are offered when no reason is given
var ReportReasons = []string{"spam", "harassment", "hate speech", "violence", "nudity", "misinformation", "other"}

// ReportService lets users flag content for moderators
type ReportService struct{}

// NewReportService creates a new report service
func NewReportService() *ReportService {
	return &ReportService{}
}

// Report files a report against a post, comment or user. Users are
// identified by username, everything else by id.
func (rs *ReportService) Report(ctx context.Context, targetType, target, reason, details string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	targetType = strings.ToLower(targetType)
	valid := false
	for _, t := range api.ReportTargets {
		valid = valid || t == targetType
	}
	if !valid {
		return clierrors.ValidationError("type", "must be one of "+strings.Join(api.ReportTargets, ", "))
	}

	targetID := target
	if targetType == "user" {
		profile, err := lookupProfile(ctx, target)
		if err != nil {
			return err
		}
		if profile.ID == creds.UserID {
			return clierrors.ValidationError("user", "you cannot report yourself")
		}
		targetID = profile.ID
	}

	if reason == "" {
		idx, err := prompter.PromptSelect("Why are you reporting this?", ReportReasons)
		if err != nil {
			return err
		}
		reason = ReportReasons[idx]
	}

	err = api.ReportContent(ctx, api.NewReport{
		ReporterID: creds.UserID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Details:    strings.TrimSpace(details),
	})
	if err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}
	formatter.PrintSuccess("🚩 Report submitted. Thanks for keeping the community safe.")
	return nil
}
