package api

import (
	"context"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// GetNotifications retrieves the caller's notifications, newest first
func GetNotifications(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*PageResult[Notification], error) {
	logger.Debug("Fetching notifications", "page", page, "page_size", pageSize, "unread_only", unreadOnly)

	q := From("notifications").
		Select("*,actor:profiles!actor_id(*)").
		Eq("user_id", userID).
		Order("created_at", false).
		Page(page, pageSize).
		Count()
	if unreadOnly {
		q.Is("is_read", "false")
	}

	var notifications []Notification
	total, err := q.Get(ctx, &notifications)
	if err != nil {
		return nil, err
	}
	return &PageResult[Notification]{Items: notifications, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetUnreadCount retrieves the count of unread notifications
func GetUnreadCount(ctx context.Context, userID string) (int, error) {
	logger.Debug("Fetching unread notification count")
	return From("notifications").Eq("user_id", userID).Is("is_read", "false").CountRows(ctx)
}

// MarkNotificationAsRead marks a single notification as read
func MarkNotificationAsRead(ctx context.Context, notificationID string) error {
	logger.Debug("Marking notification as read", "notification_id", notificationID)
	return From("notifications").Eq("id", notificationID).Update(ctx, map[string]bool{"is_read": true}, nil)
}

// MarkAllNotificationsAsRead marks all of the caller's notifications as read
func MarkAllNotificationsAsRead(ctx context.Context, userID string) error {
	logger.Debug("Marking all notifications as read")
	return From("notifications").
		Eq("user_id", userID).
		Is("is_read", "false").
		Update(ctx, map[string]bool{"is_read": true}, nil)
}

// DeleteNotification removes a notification
func DeleteNotification(ctx context.Context, notificationID string) error {
	logger.Debug("Deleting notification", "notification_id", notificationID)
	return From("notifications").Eq("id", notificationID).Delete(ctx)
}
