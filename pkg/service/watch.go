package service

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/credentials"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/realtime"
)

// tokenCheckInterval is how often a live watch looks for a token about to expire
const tokenCheckInterval = time.Minute

// watch streams row changes until ctx ends or the user interrupts. The
// access token on the socket is refreshed as the session rolls over.
func watch(ctx context.Context, creds *credentials.Credentials, banner string, channel string, sub realtime.Subscription, fn func(realtime.Change)) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := realtime.NewClient(realtime.ConfigFromBackend())
	unsubscribe := rt.Subscribe(channel, sub, fn)
	if err := rt.Connect(ctx, creds.AccessToken); err != nil {
		rt.Close()
		return fmt.Errorf("failed to connect to live updates: %w", err)
	}
	defer func() {
		unsubscribe()
		rt.Close()
	}()

	if !output.IsJSON() {
		formatter.Printf("\n")
		formatter.PrintInfo("%s", banner)
		formatter.Printf("Connected as: @%s\n", creds.Username)
		formatter.Printf("Press Ctrl+C to stop\n")
		formatter.Separator()
	}

	ticker := time.NewTicker(tokenCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if !output.IsJSON() {
				formatter.Printf("\n")
				formatter.PrintSuccess("Stopped watching")
			}
			logger.Debug("Watch ended", "channel", channel, "stats", rt.GetStats())
			return nil
		case <-ticker.C:
			if !creds.NeedsRefresh() {
				continue
			}
			refreshed, err := auth.RequireSession(ctx)
			if err != nil {
				logger.Warn("Session refresh during watch failed", "error", err)
				continue
			}
			creds = refreshed
			rt.SetAuthToken(creds.AccessToken)
		}
	}
}

// eventTime stamps a live event line
func eventTime() string {
	return time.Now().Format("15:04:05")
}
