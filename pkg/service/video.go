package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/playback"
	"github.com/socialhub/socialhub-cli/pkg/preload"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
	"github.com/socialhub/socialhub-cli/pkg/upload"
)

// MaxTitleLength bounds reel titles
const MaxTitleLength = 100

// VideoInput describes a reel to upload
type VideoInput struct {
	Path        string
	Title       string
	Description string
	Duration    time.Duration
}

// VideoService provides reels: upload, browsing with preloading, watch
// progress and history
type VideoService struct {
	uploads      *UploadService
	openCache    func() (*playback.Cache, error)
	newPreloader func() *preload.Preloader
}

// NewVideoService creates a new video service
func NewVideoService() *VideoService {
	return &VideoService{
		uploads:      NewUploadService(),
		openCache:    playback.OpenFromConfig,
		newPreloader: preload.NewFromConfig,
	}
}

func videoLength(v *api.Video) time.Duration {
	return time.Duration(v.Duration * float64(time.Second))
}

// UploadVideo uploads a video file and publishes it as a reel
func (vs *VideoService) UploadVideo(ctx context.Context, in VideoInput, opts UploadOptions) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if in.Title == "" {
		if in.Title, err = prompter.PromptRequired("Title: "); err != nil {
			return err
		}
	}
	in.Title = strings.TrimSpace(in.Title)
	if len([]rune(in.Title)) > MaxTitleLength {
		return clierrors.ValidationError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if in.Duration < 0 {
		return clierrors.ValidationError("duration", "cannot be negative")
	}

	media, err := vs.uploads.Upload(ctx, creds.UserID, in.Path, upload.MediaVideo, opts)
	if err != nil {
		return err
	}

	video, err := api.CreateVideo(ctx, api.NewVideo{
		UserID:      creds.UserID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		VideoURL:    media.URL,
		Duration:    in.Duration.Seconds(),
	})
	if err != nil {
		discardMedia(ctx, opts, media)
		return fmt.Errorf("failed to publish reel: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", video)
	}
	formatter.PrintSuccess("✓ Reel published (%s)", video.ID)
	formatter.PrintInfo("%s", video.VideoURL)
	return nil
}

// ListReels shows a page of reels with your local resume positions and views
func (vs *VideoService) ListReels(ctx context.Context, page, pageSize int) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	videos, err := api.ListVideos(ctx, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch reels: %w", err)
	}
	if output.IsJSON() {
		return output.Print("", videos)
	}
	if len(videos.Items) == 0 {
		formatter.Printf("No reels yet.\n")
		return nil
	}

	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	rows := make([][]string, 0, len(videos.Items))
	for _, v := range videos.Items {
		resume := ""
		if pos, ok, err := cache.Position(ctx, v.VideoURL); err == nil && ok {
			resume = formatter.Clock(pos)
		}
		mine, _ := cache.Views(ctx, v.VideoURL)
		rows = append(rows, []string{
			formatter.Truncate(v.Title, 40),
			handle(v.Author),
			formatter.Clock(videoLength(&v)),
			formatter.Count(v.ViewsCount),
			strconv.Itoa(mine),
			resume,
			v.ID,
		})
	}
	if err := output.PrintList("🎬 Reels", videos.Items, []string{"Title", "Author", "Length", "Views", "Yours", "Resume", "ID"}, rows); err != nil {
		return err
	}
	pageFooter(len(videos.Items), videos.Total, videos.Page, videos.PageSize)
	return nil
}

// Play starts watching a reel: it counts a view locally and on the backend
// and reports where a previous session left off
func (vs *VideoService) Play(ctx context.Context, videoID string) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}
	video, err := getVideo(ctx, videoID)
	if err != nil {
		return err
	}

	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	state, err := vs.play(ctx, cache, video)
	if err != nil {
		return err
	}
	if output.IsJSON() {
		return output.Print("", state)
	}
	displayReel(video, state)
	return nil
}

// PlayState is what starting a reel reports
type PlayState struct {
	Video      *api.Video `json:"video"`
	ResumeAt   float64    `json:"resume_at"`
	LocalViews int        `json:"local_views"`
}

func (vs *VideoService) play(ctx context.Context, cache *playback.Cache, video *api.Video) (*PlayState, error) {
	views, err := cache.IncrementViews(ctx, video.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to count view: %w", err)
	}
	// the backend count is best effort; concurrent viewers may overwrite it
	video.ViewsCount++
	if err := api.SetVideoViews(ctx, video.ID, video.ViewsCount); err != nil {
		logger.Warn("Failed to update view count", "video_id", video.ID, "error", err)
	}

	state := &PlayState{Video: video, LocalViews: views}
	if pos, ok, err := cache.Position(ctx, video.VideoURL); err != nil {
		return nil, err
	} else if ok {
		state.ResumeAt = pos.Seconds()
	}
	return state, nil
}

func displayReel(v *api.Video, state *PlayState) {
	formatter.Header(fmt.Sprintf("🎬 %s", v.Title))
	formatter.Printf("by %s · %s · %s views\n", displayName(v.Author), formatter.Clock(videoLength(v)), formatter.Count(v.ViewsCount))
	if v.Description != "" {
		formatter.Printf("%s\n", v.Description)
	}
	formatter.Printf("▶ %s\n", v.VideoURL)
	if state.ResumeAt > 0 {
		formatter.PrintInfo("Resume at %s", formatter.Clock(time.Duration(state.ResumeAt*float64(time.Second))))
	}
	formatter.Muted.Fprintf(output.Writer, "You have watched this %s\n", formatter.Pluralize(state.LocalViews, "time"))
}

// SaveProgress records where you stopped watching a reel, both in the local
// playback cache and in your watch history
func (vs *VideoService) SaveProgress(ctx context.Context, videoID string, position time.Duration) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if position < 0 {
		return clierrors.ValidationError("position", "cannot be negative")
	}
	video, err := getVideo(ctx, videoID)
	if err != nil {
		return err
	}

	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	return vs.saveProgress(ctx, cache, creds.UserID, video, position)
}

func (vs *VideoService) saveProgress(ctx context.Context, cache *playback.Cache, userID string, video *api.Video, position time.Duration) error {
	length := videoLength(video)
	if length > 0 && position > length {
		position = length
	}

	saved, err := cache.SavePosition(ctx, video.VideoURL, position, length)
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	if err := api.RecordWatch(ctx, userID, video.ID, position.Seconds()); err != nil {
		return fmt.Errorf("failed to record watch history: %w", err)
	}

	switch {
	case playback.IsFinished(position, length):
		formatter.PrintSuccess("✓ Finished %q", video.Title)
	case saved:
		formatter.PrintSuccess("✓ Saved position %s of %s", formatter.Clock(position), formatter.Clock(length))
	default:
		formatter.PrintInfo("Recorded in history; positions under %s are not kept for resume", formatter.Clock(playback.MinSavedPosition))
	}
	return nil
}

func getVideo(ctx context.Context, videoID string) (*api.Video, error) {
	video, err := api.GetVideo(ctx, videoID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("reel", videoID)
		}
		return nil, fmt.Errorf("failed to fetch reel: %w", err)
	}
	return video, nil
}

// Browse steps through reels interactively. The next videos are preloaded
// in the background as the viewer moves.
func (vs *VideoService) Browse(ctx context.Context, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	first, err := api.ListVideos(ctx, 1, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch reels: %w", err)
	}
	if len(first.Items) == 0 {
		formatter.Printf("No reels yet.\n")
		return nil
	}

	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	pre := vs.newPreloader()
	defer pre.Close()

	b := &browser{
		vs:     vs,
		cache:  cache,
		pre:    pre,
		userID: creds.UserID,
		videos: first.Items,
		total:  first.Total,
		page:   1,
		size:   pageSize,
	}
	return b.run(ctx)
}

type browser struct {
	vs     *VideoService
	cache  *playback.Cache
	pre    *preload.Preloader
	userID string

	videos []api.Video
	total  int
	page   int
	size   int
	index  int
}

func (b *browser) urls() []string {
	urls := make([]string, len(b.videos))
	for i, v := range b.videos {
		urls[i] = v.VideoURL
	}
	return urls
}

func (b *browser) show(ctx context.Context) error {
	b.pre.SetIndex(b.urls(), b.index)

	video := &b.videos[b.index]
	state, err := b.vs.play(ctx, b.cache, video)
	if err != nil {
		return err
	}
	displayReel(video, state)
	if _, ok := b.pre.Get(video.VideoURL); ok {
		formatter.Muted.Fprintln(output.Writer, "⚡ preloaded")
	}
	formatter.Muted.Fprintf(output.Writer, "[%d/%d]  n next · p previous · s <time> save position · q quit\n", b.index+1, b.total)
	return nil
}

// more loads the next page when the viewer reaches the end of what is loaded
func (b *browser) more(ctx context.Context) (bool, error) {
	if len(b.videos) >= b.total {
		return false, nil
	}
	next, err := api.ListVideos(ctx, b.page+1, b.size)
	if err != nil {
		return false, fmt.Errorf("failed to fetch reels: %w", err)
	}
	if len(next.Items) == 0 {
		return false, nil
	}
	b.page++
	b.videos = append(b.videos, next.Items...)
	b.total = next.Total
	return true, nil
}

func (b *browser) run(ctx context.Context) error {
	if err := b.show(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := prompter.PromptString("> ")
		if err != nil {
			return err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch strings.ToLower(cmd) {
		case "", "n", "next":
			if b.index == len(b.videos)-1 {
				ok, err := b.more(ctx)
				if err != nil {
					return err
				}
				if !ok {
					formatter.PrintInfo("That was the last reel")
					continue
				}
			}
			b.index++
		case "p", "prev", "previous":
			if b.index == 0 {
				formatter.PrintInfo("Already at the first reel")
				continue
			}
			b.index--
		case "s", "save":
			pos, err := ParsePosition(arg)
			if err != nil {
				formatter.PrintError("%v", err)
				continue
			}
			if err := b.vs.saveProgress(ctx, b.cache, b.userID, &b.videos[b.index], pos); err != nil {
				return err
			}
			continue
		case "q", "quit", "exit":
			return nil
		default:
			formatter.PrintWarning("Unknown command %q", cmd)
			continue
		}

		if err := b.show(ctx); err != nil {
			return err
		}
	}
}

// ParsePosition accepts seconds ("95"), a clock ("1:35", "1:02:03") or a Go
// duration ("1m35s")
func ParsePosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, clierrors.ValidationError("position", "required, e.g. 1:30")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, clierrors.ValidationError("position", "cannot be negative")
		}
		return d, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, clierrors.ValidationError("position", "cannot be negative")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, clierrors.ValidationError("position", fmt.Sprintf("cannot parse %q", s))
	}
	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (i > 0 && n >= 60) {
			return 0, clierrors.ValidationError("position", fmt.Sprintf("cannot parse %q", s))
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, nil
}

// WatchHistory lists the reels you watched, most recent first
func (vs *VideoService) WatchHistory(ctx context.Context, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	history, err := api.GetWatchHistory(ctx, creds.UserID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch watch history: %w", err)
	}
	if output.IsJSON() {
		return output.Print("", history)
	}
	if len(history.Items) == 0 {
		formatter.Printf("Your watch history is empty.\n")
		return nil
	}

	rows := make([][]string, 0, len(history.Items))
	for _, h := range history.Items {
		title, length := h.VideoID, ""
		if h.Video != nil {
			title = formatter.Truncate(h.Video.Title, 40)
			length = formatter.Clock(videoLength(h.Video))
		}
		rows = append(rows, []string{
			title,
			formatter.Clock(time.Duration(h.Progress * float64(time.Second))),
			length,
			formatter.TimeAgo(h.WatchedAt),
		})
	}
	if err := output.PrintList("🕘 Watch History", history.Items, []string{"Reel", "Stopped At", "Length", "Watched"}, rows); err != nil {
		return err
	}
	pageFooter(len(history.Items), history.Total, history.Page, history.PageSize)
	return nil
}

// ClearHistory deletes your watch history on the backend
func (vs *VideoService) ClearHistory(ctx context.Context, force bool) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if !force {
		confirm, err := prompter.PromptConfirm("Clear your entire watch history?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}
	if err := api.ClearWatchHistory(ctx, creds.UserID); err != nil {
		return fmt.Errorf("failed to clear watch history: %w", err)
	}
	formatter.PrintSuccess("✓ Watch history cleared")
	return nil
}

// CacheList shows the local playback cache, most recently used first
func (vs *VideoService) CacheList(ctx context.Context, limit int) error {
	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	entries, err := cache.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read playback cache: %w", err)
	}
	if !output.IsJSON() && len(entries) == 0 {
		formatter.Printf("The playback cache is empty.\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		pos := ""
		if e.Position > 0 {
			pos = formatter.Clock(e.Position) + " / " + formatter.Clock(e.Duration)
		}
		rows = append(rows, []string{formatter.Truncate(e.URL, 60), pos, strconv.Itoa(e.Views), formatter.TimeAgo(e.UpdatedAt)})
	}
	return output.PrintList("💾 Playback Cache", entries, []string{"URL", "Position", "Views", "Updated"}, rows)
}

// CachePrune drops cache entries that hold nothing and any overflow
func (vs *VideoService) CachePrune(ctx context.Context) error {
	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	n, err := cache.Prune(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune playback cache: %w", err)
	}
	formatter.PrintSuccess("✓ Pruned %d cache entries", n)
	return nil
}

// CacheClear empties the local playback cache
func (vs *VideoService) CacheClear(ctx context.Context) error {
	cache, err := vs.openCache()
	if err != nil {
		return fmt.Errorf("failed to open playback cache: %w", err)
	}
	defer cache.Close()

	if err := cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear playback cache: %w", err)
	}
	formatter.PrintSuccess("✓ Playback cache cleared")
	return nil
}
