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
)

// ReactionService provides post reactions
type ReactionService struct{}

// NewReactionService creates a new reaction service
func NewReactionService() *ReactionService {
	return &ReactionService{}
}

// React sets your reaction on a post, replacing any previous one
func (rs *ReactionService) React(ctx context.Context, postID, reaction string) error {
	reaction = strings.ToLower(strings.TrimSpace(reaction))
	if reaction == "" {
		reaction = api.ReactionLike
	}
	if !api.IsReactionType(reaction) {
		return clierrors.ValidationError("reaction", "must be one of "+strings.Join(api.ReactionTypes, ", "))
	}

	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.React(ctx, postID, creds.UserID, reaction); err != nil {
		return fmt.Errorf("failed to react: %w", err)
	}
	formatter.PrintSuccess("%s Reacted with %s", formatter.ReactionEmoji(reaction), reaction)
	return nil
}

// Unreact removes your reaction from a post
func (rs *ReactionService) Unreact(ctx context.Context, postID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.Unreact(ctx, postID, creds.UserID); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	formatter.PrintSuccess("✓ Reaction removed")
	return nil
}

// ShowReactions shows the reaction counts on a post
func (rs *ReactionService) ShowReactions(ctx context.Context, postID string) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	counts, err := api.CountReactions(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to fetch reactions: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", counts)
	}

	total := 0
	rows := make([][]string, 0, len(api.ReactionTypes))
	for _, r := range api.ReactionTypes {
		total += counts[r]
		rows = append(rows, []string{formatter.ReactionEmoji(r), r, formatter.Count(counts[r])})
	}
	if total == 0 {
		formatter.Printf("No reactions yet.\n")
		return nil
	}
	return output.PrintList(fmt.Sprintf("Reactions (%d)", total), counts, []string{"", "Reaction", "Count"}, rows)
}
