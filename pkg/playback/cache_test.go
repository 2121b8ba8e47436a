package playback

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, maxEntries int) (*Cache, *time.Time) {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "playback.db"), maxEntries)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return c, &now
}

func TestSaveAndRestorePosition(t *testing.T) {
	c, _ := openTest(t, 10)
	ctx := context.Background()

	saved, err := c.SavePosition(ctx, "https://cdn/a.mp4", 42*time.Second, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, saved)

	pos, ok, err := c.Position(ctx, "https://cdn/a.mp4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42*time.Second, pos)

	_, ok, err = c.Position(ctx, "https://cdn/missing.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEarlyPositionsAreNotSaved(t *testing.T) {
	c, _ := openTest(t, 10)
	ctx := context.Background()

	saved, err := c.SavePosition(ctx, "u", 4*time.Second, time.Minute)
	require.NoError(t, err)
	assert.False(t, saved)

	_, ok, _ := c.Position(ctx, "u")
	assert.False(t, ok)
}

func TestFinishedPositionsClearEntry(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		duration time.Duration
	}{
		{"within last five seconds", 56 * time.Second, time.Minute},
		{"past ninety five percent", 96 * time.Second, 100 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := openTest(t, 10)
			ctx := context.Background()

			_, err := c.SavePosition(ctx, "u", 30*time.Second, tt.duration)
			require.NoError(t, err)

			saved, err := c.SavePosition(ctx, "u", tt.position, tt.duration)
			require.NoError(t, err)
			assert.False(t, saved)

			_, ok, _ := c.Position(ctx, "u")
			assert.False(t, ok)
		})
	}
}

func TestIsFinished(t *testing.T) {
	assert.False(t, IsFinished(10*time.Second, 0), "unknown duration")
	assert.False(t, IsFinished(30*time.Second, time.Minute))
	assert.True(t, IsFinished(55*time.Second, time.Minute))
	assert.True(t, IsFinished(950*time.Second, 1000*time.Second))
}

func TestViewsSurviveClearedPosition(t *testing.T) {
	c, _ := openTest(t, 10)
	ctx := context.Background()

	n, err := c.IncrementViews(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = c.IncrementViews(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.SavePosition(ctx, "u", 20*time.Second, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.ClearPosition(ctx, "u"))

	views, err := c.Views(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, views)

	views, err = c.Views(ctx, "never-seen")
	require.NoError(t, err)
	assert.Zero(t, views)
}

func TestEvictsLeastRecentlyUpdated(t *testing.T) {
	c, _ := openTest(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.SavePosition(ctx, fmt.Sprintf("v%d", i), 10*time.Second, time.Minute)
		require.NoError(t, err)
	}
	// touching v2 makes v3 the oldest survivor
	_, err := c.SavePosition(ctx, "v2", 12*time.Second, time.Minute)
	require.NoError(t, err)
	_, err = c.SavePosition(ctx, "v5", 10*time.Second, time.Minute)
	require.NoError(t, err)

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	assert.Equal(t, []string{"v5", "v2", "v4"}, urls)
}

func TestPruneDropsEmptyEntries(t *testing.T) {
	c, _ := openTest(t, 10)
	ctx := context.Background()

	_, err := c.db.ExecContext(ctx, `INSERT INTO playback(url, updated_at) VALUES('empty', 1)`)
	require.NoError(t, err)
	_, err = c.SavePosition(ctx, "kept", 10*time.Second, time.Minute)
	require.NoError(t, err)

	n, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].URL)
}

func TestCachePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playback.db")
	ctx := context.Background()

	c, err := Open(path, 10)
	require.NoError(t, err)
	_, err = c.SavePosition(ctx, "u", 33*time.Second, 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path, 10)
	require.NoError(t, err)
	defer c.Close()

	pos, ok, err := c.Position(ctx, "u")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 33*time.Second, pos)
}
