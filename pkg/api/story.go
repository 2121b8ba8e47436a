package api

import (
	"context"
	"fmt"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// StoryLifetime is how long a story stays visible after it is posted
const StoryLifetime = 24 * time.Hour

const storyColumns = "*,author:profiles(*)"

// CreateStory inserts a story expiring StoryLifetime from now
func CreateStory(ctx context.Context, userID, mediaURL, mediaType, caption string) (*Story, error) {
	logger.Debug("Creating story", "user_id", userID, "media_type", mediaType)

	story := NewStory{
		UserID:    userID,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Caption:   caption,
		ExpiresAt: time.Now().Add(StoryLifetime).UTC(),
	}

	var rows []Story
	if err := From("stories").Select(storyColumns).Insert(ctx, story, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no story")
	}
	return &rows[0], nil
}

// GetActiveStories lists unexpired stories, newest first
func GetActiveStories(ctx context.Context, limit int) ([]Story, error) {
	logger.Debug("Fetching active stories", "limit", limit)

	var stories []Story
	_, err := From("stories").
		Select(storyColumns).
		Gt("expires_at", time.Now().UTC().Format(time.RFC3339)).
		Order("created_at", false).
		Limit(limit).
		Get(ctx, &stories)
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// GetUserStories lists one user's unexpired stories, oldest first
func GetUserStories(ctx context.Context, userID string) ([]Story, error) {
	logger.Debug("Fetching user stories", "user_id", userID)

	var stories []Story
	_, err := From("stories").
		Select(storyColumns).
		Eq("user_id", userID).
		Gt("expires_at", time.Now().UTC().Format(time.RFC3339)).
		Order("created_at", true).
		Get(ctx, &stories)
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// GetStory retrieves a story by ID
func GetStory(ctx context.Context, storyID string) (*Story, error) {
	logger.Debug("Fetching story", "story_id", storyID)

	var story Story
	if _, err := From("stories").Select(storyColumns).Eq("id", storyID).Single().Get(ctx, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// MarkStoryViewed records that viewerID saw the story; repeat views are merged
func MarkStoryViewed(ctx context.Context, storyID, viewerID string) error {
	logger.Debug("Marking story viewed", "story_id", storyID)

	row := map[string]string{"story_id": storyID, "viewer_id": viewerID}
	return From("story_views").OnConflict("story_id,viewer_id").Upsert(ctx, row, nil)
}

// GetStoryViewers lists who viewed a story
func GetStoryViewers(ctx context.Context, storyID string) ([]StoryView, error) {
	logger.Debug("Fetching story viewers", "story_id", storyID)

	var views []StoryView
	_, err := From("story_views").
		Select("*,viewer:profiles(*)").
		Eq("story_id", storyID).
		Order("viewed_at", false).
		Get(ctx, &views)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// DeleteStory deletes one of the caller's stories
func DeleteStory(ctx context.Context, storyID string) error {
	logger.Debug("Deleting story", "story_id", storyID)
	return From("stories").Eq("id", storyID).Delete(ctx)
}
