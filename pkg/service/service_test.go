package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cliErrorType(t *testing.T, err error) clierrors.ErrorType {
	t.Helper()
	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	return cliErr.Type
}

func TestServicesRequireLogin(t *testing.T) {
	newTestEnv(t)
	ctx := context.Background()

	err := NewFeedService().ViewFeed(ctx, 1, 20)
	assert.Equal(t, clierrors.ErrorTypeAuth, cliErrorType(t, err))

	err = NewNotificationService().ListNotifications(ctx, false, 1, 20)
	assert.Equal(t, clierrors.ErrorTypeAuth, cliErrorType(t, err))
}

func TestViewFeedRendersPosts(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/posts", respondPage(1, `[{
		"id": "p1",
		"user_id": "u2",
		"content": "hello world",
		"author": {"id": "u2", "username": "ada", "full_name": "Ada L"},
		"post_reactions": [{"user_id": "u1", "reaction": "love"}, {"user_id": "u3", "reaction": "like"}],
		"comments": [{"count": 2}]
	}]`))

	require.NoError(t, NewFeedService().ViewFeed(context.Background(), 1, 20))

	out := env.out.String()
	assert.Contains(t, out, "Your Feed")
	assert.Contains(t, out, "Ada L (@ada)")
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "2 comments")
	assert.Contains(t, out, "you reacted ❤️")
}

func TestViewFeedEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/posts", respondPage(0, `[]`))

	require.NoError(t, NewFeedService().ViewFeed(context.Background(), 1, 20))
	assert.Contains(t, env.out.String(), "No posts in your feed.")
}

func TestReactValidatesBeforeCallingBackend(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	err := NewReactionService().React(context.Background(), "p1", "meh")
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
	assert.Zero(t, env.backend.count(http.MethodPost, "/rest/v1/"))
}

func TestReactDefaultsToLike(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	require.NoError(t, NewReactionService().React(context.Background(), "p1", ""))

	reqs := env.backend.find(http.MethodPost, "/rest/v1/post_reactions")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"post_id":"p1","user_id":"u1","reaction":"like"}`, reqs[0].Body)
}

func TestCreatePostUploadsMediaFirst(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.onPrefix(http.MethodPut, "/storage/v1/object/media/", respondJSON(http.StatusOK, `{}`))
	env.backend.on(http.MethodPost, "/rest/v1/posts", respondJSON(http.StatusCreated, `[{"id":"p9","user_id":"u1","content":"look"}]`))

	img := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(img, bytes.Repeat([]byte{0x89}, 4096), 0600))

	var progress bytes.Buffer
	ps := &PostService{uploads: quietUploads(&progress)}
	err := ps.CreatePost(context.Background(), PostInput{Content: "look", MediaPath: img}, UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, env.backend.count(http.MethodPut, "/storage/v1/object/media/u1/"))
	assert.Contains(t, progress.String(), "Uploading cat.png")

	reqs := env.backend.find(http.MethodPost, "/rest/v1/posts")
	require.Len(t, reqs, 1)
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &sent))
	assert.Equal(t, "image", sent["media_type"])
	assert.Equal(t, "public", sent["privacy"])
	assert.Contains(t, sent["media_url"], "/storage/v1/object/public/media/u1/")
	assert.Contains(t, env.out.String(), "Post published")
}

func TestCreatePostDiscardsMediaWhenPostFails(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.onPrefix(http.MethodPut, "/storage/v1/object/media/", respondJSON(http.StatusOK, `{}`))
	env.backend.onPrefix(http.MethodDelete, "/storage/v1/object/media/", respondJSON(http.StatusOK, `{}`))
	env.backend.on(http.MethodPost, "/rest/v1/posts", respondJSON(http.StatusBadRequest, `{"message":"bad row"}`))

	img := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0600))

	ps := &PostService{uploads: quietUploads(&bytes.Buffer{})}
	err := ps.CreatePost(context.Background(), PostInput{MediaPath: img}, UploadOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, env.backend.count(http.MethodDelete, "/storage/v1/object/media/u1/"))
}

func TestCreatePostRejectsBadPrivacy(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	err := NewPostService().CreatePost(context.Background(), PostInput{Content: "x", Privacy: "secret"}, UploadOptions{})
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
}

func TestAdminPanelNeedsAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	err := NewAdminService().Dashboard(context.Background())
	assert.Equal(t, clierrors.ErrorTypeForbidden, cliErrorType(t, err))
	assert.Empty(t, env.backend.find(http.MethodHead, "/rest/v1/profiles"))
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "root", true)
	env.backend.onPrefix(http.MethodHead, "/rest/v1/", respondPage(7, ``))

	require.NoError(t, NewAdminService().Dashboard(context.Background()))
	out := env.out.String()
	assert.Contains(t, out, "Admin Dashboard")
	assert.Contains(t, out, "Pending reports: 7")
}

func TestAdminCannotBanSelf(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "root", true)
	env.backend.on(http.MethodGet, "/rest/v1/profiles", respondJSON(http.StatusOK, `{"id":"u1","username":"root"}`))

	err := NewAdminService().SetBanned(context.Background(), "@root", true)
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
	assert.Empty(t, env.backend.find(http.MethodPatch, "/rest/v1/profiles"))
}

func TestSendFriendRequest(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/profiles", respondJSON(http.StatusOK, `{"id":"u2","username":"bob"}`))
	env.backend.on(http.MethodGet, "/rest/v1/friendships", respondJSON(http.StatusOK, `[]`))
	env.backend.on(http.MethodPost, "/rest/v1/friendships", respondJSON(http.StatusCreated, `[{"id":"f1","user_id":"u1","friend_id":"u2","status":"pending"}]`))

	require.NoError(t, NewFriendService().SendRequest(context.Background(), "bob"))

	reqs := env.backend.find(http.MethodPost, "/rest/v1/friendships")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"user_id":"u1","friend_id":"u2","status":"pending"}`, reqs[0].Body)
	assert.Contains(t, env.out.String(), "Friend request sent to @bob")
}

func TestSendFriendRequestAlreadyFriends(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/profiles", respondJSON(http.StatusOK, `{"id":"u2","username":"bob"}`))
	env.backend.on(http.MethodGet, "/rest/v1/friendships", respondJSON(http.StatusOK, `[{"id":"f1","user_id":"u2","friend_id":"u1","status":"accepted"}]`))

	require.NoError(t, NewFriendService().SendRequest(context.Background(), "bob"))
	assert.Empty(t, env.backend.find(http.MethodPost, "/rest/v1/friendships"))
	assert.Contains(t, env.out.String(), "already friends")
}

func TestSendFriendRequestUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/profiles", respondJSON(http.StatusNotFound, `{"message":"not found"}`))

	err := NewFriendService().SendRequest(context.Background(), "ghost")
	assert.Equal(t, clierrors.ErrorTypeNotFound, cliErrorType(t, err))
}

func TestListNotificationsJSON(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	config.Set("output.format", "json")
	env.backend.on(http.MethodGet, "/rest/v1/notifications", respondPage(1, `[{"id":"n1","user_id":"u1","type":"comment","content":"bob commented","is_read":false}]`))

	require.NoError(t, NewNotificationService().ListNotifications(context.Background(), true, 1, 20))

	var page struct {
		Items []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "comment", page.Items[0].Type)
	assert.Equal(t, 1, page.Total)

	reqs := env.backend.find(http.MethodGet, "/rest/v1/notifications")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"is.false"}, reqs[0].Query["is_read"])
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	ss := NewSearchService()

	err := ss.Search(context.Background(), "   ", SearchAll, 10)
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))

	err = ss.Search(context.Background(), "ada", "everything", 10)
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
}

func TestSearchUsersOnly(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/profiles", respondJSON(http.StatusOK, `[{"id":"u2","username":"ada","full_name":"Ada L"}]`))

	require.NoError(t, NewSearchService().Search(context.Background(), "ada", SearchUsers, 10))
	assert.Contains(t, env.out.String(), "@ada")
	assert.Empty(t, env.backend.find(http.MethodGet, "/rest/v1/posts"))
}

func TestReportValidatesTarget(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	err := NewReportService().Report(context.Background(), "story", "s1", "spam", "")
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
}

func TestReportPost(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)

	require.NoError(t, NewReportService().Report(context.Background(), "Post", "p1", "spam", " lots of links "))

	reqs := env.backend.find(http.MethodPost, "/rest/v1/reports")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"reporter_id":"u1","target_type":"post","target_id":"p1","reason":"spam","details":"lots of links"}`, reqs[0].Body)
}

func TestValidateProfileWebsite(t *testing.T) {
	site := "example.com/me"
	req, err := validateProfile(ProfileUpdate{Website: &site})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/me", *req.Website)

	bad := "ftp://example.com"
	_, err = validateProfile(ProfileUpdate{Website: &bad})
	assert.Error(t, err)

	long := strings.Repeat("b", MaxBioLength+1)
	_, err = validateProfile(ProfileUpdate{Bio: &long})
	assert.Error(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := newTestEnv(t)
	config.Set("backend.anon_key", "supersecretkey")

	require.NoError(t, NewConfigService().Show("backend.anon_key"))
	assert.Equal(t, "****tkey\n", env.out.String())

	err := NewConfigService().Show("no.such.key")
	assert.Equal(t, clierrors.ErrorTypeValidation, cliErrorType(t, err))
}

func TestConfigSetPersists(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, NewConfigService().Set("storage.bucket", "reels"))
	assert.Equal(t, "reels", config.GetString("storage.bucket"))

	data, err := os.ReadFile(filepath.Join(env.dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "reels")
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"95", 95 * time.Second, false},
		{"1.5", 1500 * time.Millisecond, false},
		{"1:30", 90 * time.Second, false},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"90:00", 90 * time.Minute, false},
		{"1:75", 0, true},
		{"-5", 0, true},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePosition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveProgressStoresResumePoint(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/videos", respondJSON(http.StatusOK, `{"id":"v1","title":"Surf","video_url":"https://cdn/v1.mp4","duration":100}`))

	dbPath := filepath.Join(t.TempDir(), "playback.db")
	vs := &VideoService{
		uploads:   quietUploads(&bytes.Buffer{}),
		openCache: func() (*playback.Cache, error) { return playback.Open(dbPath, 10) },
	}
	ctx := context.Background()

	require.NoError(t, vs.SaveProgress(ctx, "v1", 30*time.Second))
	assert.Contains(t, env.out.String(), "Saved position 0:30 of 1:40")

	reqs := env.backend.find(http.MethodPost, "/rest/v1/watch_history")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Body, `"progress":30`)

	cache, err := playback.Open(dbPath, 10)
	require.NoError(t, err)
	defer cache.Close()
	pos, ok, err := cache.Position(ctx, "https://cdn/v1.mp4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, pos)
}

func TestSaveProgressNearEndFinishes(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/videos", respondJSON(http.StatusOK, `{"id":"v1","title":"Surf","video_url":"https://cdn/v1.mp4","duration":100}`))

	dbPath := filepath.Join(t.TempDir(), "playback.db")
	vs := &VideoService{openCache: func() (*playback.Cache, error) { return playback.Open(dbPath, 10) }}

	// past the end clamps to the duration
	require.NoError(t, vs.SaveProgress(context.Background(), "v1", 5*time.Minute))
	assert.Contains(t, env.out.String(), `Finished "Surf"`)

	cache, err := playback.Open(dbPath, 10)
	require.NoError(t, err)
	defer cache.Close()
	_, ok, err := cache.Position(context.Background(), "https://cdn/v1.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlayCountsViews(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", "me", false)
	env.backend.on(http.MethodGet, "/rest/v1/videos", respondJSON(http.StatusOK, `{"id":"v1","title":"Surf","video_url":"https://cdn/v1.mp4","duration":100,"views_count":4}`))

	dbPath := filepath.Join(t.TempDir(), "playback.db")
	vs := &VideoService{openCache: func() (*playback.Cache, error) { return playback.Open(dbPath, 10) }}
	ctx := context.Background()

	require.NoError(t, vs.Play(ctx, "v1"))
	require.NoError(t, vs.Play(ctx, "v1"))

	patches := env.backend.find(http.MethodPatch, "/rest/v1/videos")
	require.Len(t, patches, 2)
	assert.JSONEq(t, `{"views_count":5}`, patches[0].Body)
	assert.Contains(t, env.out.String(), "You have watched this 2 times")
}
