package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const friendshipColumns = "*,user:profiles!user_id(*),friend:profiles!friend_id(*)"

// pairFilter matches the friendship between two users in either direction
func pairFilter(a, b string) string {
	return fmt.Sprintf("and(user_id.eq.%s,friend_id.eq.%s),and(user_id.eq.%s,friend_id.eq.%s)", a, b, b, a)
}

// GetFriendship returns the friendship row between two users, if any
func GetFriendship(ctx context.Context, userID, otherID string) (*Friendship, error) {
	var rows []Friendship
	if _, err := From("friendships").Select("*").Or(pairFilter(userID, otherID)).Limit(1).Get(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SendFriendRequest creates a pending friendship from userID to friendID
func SendFriendRequest(ctx context.Context, userID, friendID string) (*Friendship, error) {
	logger.Debug("Sending friend request", "friend_id", friendID)

	row := map[string]string{"user_id": userID, "friend_id": friendID, "status": FriendshipPending}
	var rows []Friendship
	if err := From("friendships").Insert(ctx, row, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no friendship")
	}
	return &rows[0], nil
}

// RespondToFriendRequest accepts or declines a pending request addressed to userID
func RespondToFriendRequest(ctx context.Context, requestID, userID string, accept bool) error {
	status := FriendshipDeclined
	if accept {
		status = FriendshipAccepted
	}
	logger.Debug("Responding to friend request", "request_id", requestID, "status", status)

	var rows []Friendship
	err := From("friendships").
		Eq("id", requestID).
		Eq("friend_id", userID).
		Eq("status", FriendshipPending).
		Update(ctx, map[string]string{"status": status}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound("no pending friend request with that id")
	}
	return nil
}

// GetFriends lists accepted friendships involving userID
func GetFriends(ctx context.Context, userID string, page, pageSize int) (*PageResult[Friendship], error) {
	logger.Debug("Fetching friends", "user_id", userID, "page", page)

	var rows []Friendship
	total, err := From("friendships").
		Select(friendshipColumns).
		Eq("status", FriendshipAccepted).
		Or(fmt.Sprintf("user_id.eq.%s,friend_id.eq.%s", userID, userID)).
		Order("updated_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return &PageResult[Friendship]{Items: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetPendingFriendRequests lists requests addressed to userID
func GetPendingFriendRequests(ctx context.Context, userID string) ([]Friendship, error) {
	logger.Debug("Fetching pending friend requests", "user_id", userID)

	var rows []Friendship
	_, err := From("friendships").
		Select(friendshipColumns).
		Eq("friend_id", userID).
		Eq("status", FriendshipPending).
		Order("created_at", false).
		Get(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSentFriendRequests lists pending requests userID has sent
func GetSentFriendRequests(ctx context.Context, userID string) ([]Friendship, error) {
	var rows []Friendship
	_, err := From("friendships").
		Select(friendshipColumns).
		Eq("user_id", userID).
		Eq("status", FriendshipPending).
		Order("created_at", false).
		Get(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Unfriend deletes the friendship between two users in either direction
func Unfriend(ctx context.Context, userID, otherID string) error {
	logger.Debug("Removing friendship", "other_id", otherID)
	return From("friendships").Or(pairFilter(userID, otherID)).Delete(ctx)
}
