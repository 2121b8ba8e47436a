package api

import (
	"context"
	"fmt"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const videoColumns = "*,author:profiles(*)"

// CreateVideo registers an uploaded video as a reel
func CreateVideo(ctx context.Context, v NewVideo) (*Video, error) {
	logger.Debug("Creating video", "user_id", v.UserID, "title", v.Title)

	var rows []Video
	if err := From("videos").Select(videoColumns).Insert(ctx, v, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no video")
	}
	return &rows[0], nil
}

// ListVideos returns reels newest first
func ListVideos(ctx context.Context, page, pageSize int) (*PageResult[Video], error) {
	logger.Debug("Listing videos", "page", page, "page_size", pageSize)

	var videos []Video
	total, err := From("videos").
		Select(videoColumns).
		Order("created_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &videos)
	if err != nil {
		return nil, err
	}
	return &PageResult[Video]{Items: videos, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetVideo retrieves a video by ID
func GetVideo(ctx context.Context, videoID string) (*Video, error) {
	logger.Debug("Fetching video", "video_id", videoID)

	var video Video
	if _, err := From("videos").Select(videoColumns).Eq("id", videoID).Single().Get(ctx, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// SetVideoViews stores a new view count for a video
func SetVideoViews(ctx context.Context, videoID string, views int) error {
	logger.Debug("Updating video views", "video_id", videoID, "views", views)
	return From("videos").Eq("id", videoID).Update(ctx, map[string]int{"views_count": views}, nil)
}

// RecordWatch upserts the caller's progress (seconds) on a video
func RecordWatch(ctx context.Context, userID, videoID string, progress float64) error {
	logger.Debug("Recording watch progress", "video_id", videoID, "progress", progress)

	row := map[string]interface{}{
		"user_id":    userID,
		"video_id":   videoID,
		"progress":   progress,
		"watched_at": time.Now().UTC(),
	}
	return From("watch_history").OnConflict("user_id,video_id").Upsert(ctx, row, nil)
}

// GetWatchHistory lists the caller's watched videos, most recent first
func GetWatchHistory(ctx context.Context, userID string, page, pageSize int) (*PageResult[WatchHistory], error) {
	logger.Debug("Fetching watch history", "user_id", userID, "page", page)

	var history []WatchHistory
	total, err := From("watch_history").
		Select("*,video:videos(*)").
		Eq("user_id", userID).
		Order("watched_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &history)
	if err != nil {
		return nil, err
	}
	return &PageResult[WatchHistory]{Items: history, Total: total, Page: page, PageSize: pageSize}, nil
}

// ClearWatchHistory removes every watch history row for the caller
func ClearWatchHistory(ctx context.Context, userID string) error {
	logger.Debug("Clearing watch history", "user_id", userID)
	return From("watch_history").Eq("user_id", userID).Delete(ctx)
}
