// Package playback remembers where each video was left off and how often
// it was watched, in a small SQLite file next to the config.
package playback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	_ "modernc.org/sqlite"
)

const (
	// MinSavedPosition is how far in a position must be before it is worth saving
	MinSavedPosition = 5 * time.Second
	// FinishedTail counts a video as finished this close to its end
	FinishedTail = 5 * time.Second
	// FinishedRatio counts a video as finished past this share of its duration
	FinishedRatio = 0.95

	DefaultMaxEntries = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS playback (
	url        TEXT PRIMARY KEY,
	position   INTEGER NOT NULL DEFAULT 0,
	duration   INTEGER NOT NULL DEFAULT 0,
	views      INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_playback_updated ON playback(updated_at);
`

// Entry is one cached media URL
type Entry struct {
	URL       string        `json:"url"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	Views     int           `json:"views"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Cache is a persistent map of media URL to last position and view count
type Cache struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time
}

// Open opens or creates the cache database at path
func Open(path string, maxEntries int) (*Cache, error) {
	if path == "" {
		return nil, errors.New("playback cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open playback cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate playback cache: %w", err)
	}

	logger.Debug("Playback cache opened", "path", path, "max_entries", maxEntries)
	return &Cache{db: db, maxEntries: maxEntries, now: time.Now}, nil
}

// OpenFromConfig opens the cache configured under cache.*
func OpenFromConfig() (*Cache, error) {
	return Open(config.GetString("cache.path"), config.GetInt("cache.max_entries"))
}

// Close releases the database
func (c *Cache) Close() error {
	return c.db.Close()
}

// IsFinished reports whether position counts as having watched to the end
func IsFinished(position, duration time.Duration) bool {
	if duration <= 0 {
		return false
	}
	return duration-position <= FinishedTail || float64(position) >= FinishedRatio*float64(duration)
}

// SavePosition remembers where url was left off. Positions near the start
// are ignored and positions near the end clear the entry, since the video
// was finished. It reports whether a position was stored.
func (c *Cache) SavePosition(ctx context.Context, url string, position, duration time.Duration) (bool, error) {
	if position < MinSavedPosition {
		return false, nil
	}
	if IsFinished(position, duration) {
		return false, c.ClearPosition(ctx, url)
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO playback(url, position, duration, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			position = excluded.position,
			duration = excluded.duration,
			updated_at = excluded.updated_at`,
		url, int64(position), int64(duration), c.now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("save position: %w", err)
	}

	if _, err := c.evictOverflow(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Position returns the saved position for url
func (c *Cache) Position(ctx context.Context, url string) (time.Duration, bool, error) {
	var pos int64
	err := c.db.QueryRowContext(ctx, `SELECT position FROM playback WHERE url = ?`, url).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return time.Duration(pos), pos > 0, nil
}

// ClearPosition forgets the position for url but keeps its view count
func (c *Cache) ClearPosition(ctx context.Context, url string) error {
	if _, err := c.db.ExecContext(ctx,
		`UPDATE playback SET position = 0, updated_at = ? WHERE url = ?`,
		c.now().UnixNano(), url); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM playback WHERE url = ? AND views = 0`, url)
	return err
}

// IncrementViews adds one view for url and returns the new count
func (c *Cache) IncrementViews(ctx context.Context, url string) (int, error) {
	var views int
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO playback(url, views, updated_at) VALUES(?, 1, ?)
		ON CONFLICT(url) DO UPDATE SET
			views = views + 1,
			updated_at = excluded.updated_at
		RETURNING views`,
		url, c.now().UnixNano()).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}

	if _, err := c.evictOverflow(ctx); err != nil {
		return views, err
	}
	return views, nil
}

// Views returns the local view count for url
func (c *Cache) Views(ctx context.Context, url string) (int, error) {
	var views int
	err := c.db.QueryRowContext(ctx, `SELECT views FROM playback WHERE url = ?`, url).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return views, err
}

// List returns entries, most recently updated first
func (c *Cache) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = c.maxEntries
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT url, position, duration, views, updated_at
		FROM playback ORDER BY updated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var pos, dur, updated int64
		if err := rows.Scan(&e.URL, &pos, &dur, &e.Views, &updated); err != nil {
			return nil, err
		}
		e.Position = time.Duration(pos)
		e.Duration = time.Duration(dur)
		e.UpdatedAt = time.Unix(0, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune drops empty entries and evicts the least recently updated ones
// beyond the cap. It returns how many rows were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM playback WHERE position = 0 AND views = 0`)
	if err != nil {
		return 0, err
	}
	empty, _ := res.RowsAffected()

	evicted, err := c.evictOverflow(ctx)
	return int(empty) + evicted, err
}

// Clear removes every entry
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM playback`)
	return err
}

func (c *Cache) evictOverflow(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM playback WHERE url IN (
			SELECT url FROM playback
			ORDER BY updated_at DESC, rowid DESC
			LIMIT -1 OFFSET ?
		)`, c.maxEntries)
	if err != nil {
		return 0, fmt.Errorf("evict playback entries: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.Debug("Evicted playback entries", "count", n)
	}
	return int(n), nil
}
