package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// IsReactionType reports whether r is one of ReactionTypes
func IsReactionType(r string) bool {
	for _, t := range ReactionTypes {
		if t == r {
			return true
		}
	}
	return false
}

// React sets the caller's reaction on a post. A user holds at most one
// reaction per post, so reacting again replaces the previous one.
func React(ctx context.Context, postID, userID, reaction string) error {
	logger.Debug("Reacting to post", "post_id", postID, "reaction", reaction)

	row := map[string]string{
		"post_id":  postID,
		"user_id":  userID,
		"reaction": reaction,
	}
	return From("post_reactions").OnConflict("post_id,user_id").Upsert(ctx, row, nil)
}

// Unreact removes the caller's reaction from a post
func Unreact(ctx context.Context, postID, userID string) error {
	logger.Debug("Removing reaction", "post_id", postID)
	return From("post_reactions").Eq("post_id", postID).Eq("user_id", userID).Delete(ctx)
}

// ListReactions returns every reaction on a post
func ListReactions(ctx context.Context, postID string) ([]Reaction, error) {
	logger.Debug("Listing reactions", "post_id", postID)

	var reactions []Reaction
	if _, err := From("post_reactions").Select("*").Eq("post_id", postID).Get(ctx, &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}

// CountReactions tallies reactions on a post by type
func CountReactions(ctx context.Context, postID string) (map[string]int, error) {
	reactions, err := ListReactions(ctx, postID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(ReactionTypes))
	for _, r := range reactions {
		counts[r.Reaction]++
	}
	return counts, nil
}
