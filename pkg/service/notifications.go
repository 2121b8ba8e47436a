package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/realtime"
)

// NotificationService provides notification operations
type NotificationService struct{}

// NewNotificationService creates a new notification service
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

var notificationEmoji = map[string]string{
	"reaction":       "❤️",
	"comment":        "💬",
	"friend_request": "🤝",
	"message":        "✉️",
	"mention":        "📣",
}

func notificationIcon(kind string) string {
	if e, ok := notificationEmoji[kind]; ok {
		return e
	}
	return "🔔"
}

// ListNotifications shows your notifications, newest first
func (ns *NotificationService) ListNotifications(ctx context.Context, unreadOnly bool, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	notifications, err := api.GetNotifications(ctx, creds.UserID, unreadOnly, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", notifications)
	}
	if len(notifications.Items) == 0 {
		if unreadOnly {
			formatter.Printf("No unread notifications.\n")
		} else {
			formatter.Printf("No notifications.\n")
		}
		return nil
	}

	formatter.Header("🔔 Notifications")
	for _, n := range notifications.Items {
		marker := " "
		if !n.IsRead {
			marker = formatter.Info.Sprint("●")
		}
		formatter.Printf("%s %s %s", marker, notificationIcon(n.Type), n.Content)
		formatter.Muted.Fprintf(output.Writer, " · %s · %s\n", formatter.TimeAgo(n.CreatedAt), n.ID)
	}
	pageFooter(len(notifications.Items), notifications.Total, notifications.Page, notifications.PageSize)
	return nil
}

// UnreadCount prints how many notifications and messages are unread
func (ns *NotificationService) UnreadCount(ctx context.Context) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	notifications, err := api.GetUnreadCount(ctx, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to count notifications: %w", err)
	}
	messages, err := api.GetUnreadMessageCount(ctx, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", map[string]int{"notifications": notifications, "messages": messages})
	}
	formatter.Printf("🔔 %s\n", formatter.Pluralize(notifications, "unread notification"))
	formatter.Printf("💬 %s\n", formatter.Pluralize(messages, "unread message"))
	return nil
}

// MarkRead marks one notification as read
func (ns *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}
	if err := api.MarkNotificationAsRead(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	formatter.PrintSuccess("✓ Marked as read")
	return nil
}

// MarkAllRead marks every notification as read
func (ns *NotificationService) MarkAllRead(ctx context.Context) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.MarkAllNotificationsAsRead(ctx, creds.UserID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	formatter.PrintSuccess("✓ All notifications marked as read")
	return nil
}

// Delete removes a notification
func (ns *NotificationService) Delete(ctx context.Context, notificationID string) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}
	if err := api.DeleteNotification(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	formatter.PrintSuccess("✓ Notification deleted")
	return nil
}

// Watch prints new notifications as they arrive
func (ns *NotificationService) Watch(ctx context.Context) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	sub := realtime.Subscription{
		Event:  "INSERT",
		Schema: "public",
		Table:  "notifications",
		Filter: "user_id=eq." + creds.UserID,
	}
	return watch(ctx, creds, "🔔 Watching for real-time notifications", "notifications:"+creds.UserID, sub,
		func(change realtime.Change) {
			var n api.Notification
			if err := change.Decode(&n); err != nil {
				logger.Warn("Undecodable notification event", "error", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if output.IsJSON() {
				_ = output.Print("", n)
				return
			}
			formatter.Printf("[%s] %s %s\n", eventTime(), notificationIcon(n.Type), n.Content)
		})
}
