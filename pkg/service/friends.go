package service

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// FriendService manages friendships and friend requests
type FriendService struct{}

// NewFriendService creates a new friend service
func NewFriendService() *FriendService {
	return &FriendService{}
}

// SendRequest asks username to become your friend
func (fs *FriendService) SendRequest(ctx context.Context, username string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	profile, err := lookupProfile(ctx, username)
	if err != nil {
		return err
	}
	if profile.ID == creds.UserID {
		return clierrors.ValidationError("username", "you cannot befriend yourself")
	}

	existing, err := api.GetFriendship(ctx, creds.UserID, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if existing != nil {
		switch {
		case existing.Status == api.FriendshipAccepted:
			formatter.PrintInfo("You are already friends with @%s", profile.Username)
			return nil
		case existing.Status == api.FriendshipPending && existing.UserID == creds.UserID:
			formatter.PrintInfo("Friend request to @%s is still pending", profile.Username)
			return nil
		case existing.Status == api.FriendshipPending:
			formatter.PrintInfo("@%s already sent you a request. Accept it with 'socialhub friend accept %s'", profile.Username, existing.ID)
			return nil
		default:
			// a declined request is replaced by a fresh one
			logger.Debug("Replacing declined friendship", "id", existing.ID)
			if err := api.Unfriend(ctx, creds.UserID, profile.ID); err != nil {
				return fmt.Errorf("failed to reset friendship: %w", err)
			}
		}
	}

	req, err := api.SendFriendRequest(ctx, creds.UserID, profile.ID)
	if err != nil {
		if api.IsConflict(err) {
			return clierrors.ConflictError("A friend request between you already exists")
		}
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	if output.IsJSON() {
		return output.Print("", req)
	}
	formatter.PrintSuccess("✓ Friend request sent to @%s", profile.Username)
	return nil
}

// Respond accepts or declines a request addressed to you
func (fs *FriendService) Respond(ctx context.Context, requestID string, accept bool) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.RespondToFriendRequest(ctx, requestID, creds.UserID, accept); err != nil {
		if api.IsNotFound(err) {
			return clierrors.NotFoundError("friend request", requestID)
		}
		return fmt.Errorf("failed to respond to friend request: %w", err)
	}
	if accept {
		formatter.PrintSuccess("🤝 Friend request accepted")
	} else {
		formatter.PrintSuccess("✓ Friend request declined")
	}
	return nil
}

// ListFriends lists your friends
func (fs *FriendService) ListFriends(ctx context.Context, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	friends, err := api.GetFriends(ctx, creds.UserID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch friends: %w", err)
	}
	if !output.IsJSON() && len(friends.Items) == 0 {
		formatter.Printf("No friends yet. Send a request with 'socialhub friend add <username>'.\n")
		return nil
	}

	rows := make([][]string, 0, len(friends.Items))
	for i := range friends.Items {
		f := &friends.Items[i]
		rows = append(rows, []string{displayName(f.Other(creds.UserID)), formatter.TimeAgo(f.UpdatedAt)})
	}
	if err := output.PrintList(fmt.Sprintf("🤝 Friends (%d)", friends.Total), friends.Items, []string{"Friend", "Since"}, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(friends.Items), friends.Total, friends.Page, friends.PageSize)
	}
	return nil
}

// ListRequests shows pending requests you received and sent
func (fs *FriendService) ListRequests(ctx context.Context) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	incoming, err := api.GetPendingFriendRequests(ctx, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to fetch friend requests: %w", err)
	}
	sent, err := api.GetSentFriendRequests(ctx, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to fetch sent requests: %w", err)
	}

	if output.IsJSON() {
		if incoming == nil {
			incoming = []api.Friendship{}
		}
		if sent == nil {
			sent = []api.Friendship{}
		}
		return output.Print("", map[string]interface{}{"incoming": incoming, "sent": sent})
	}

	if len(incoming) == 0 && len(sent) == 0 {
		formatter.Printf("No pending friend requests.\n")
		return nil
	}

	if len(incoming) > 0 {
		rows := make([][]string, 0, len(incoming))
		for _, r := range incoming {
			rows = append(rows, []string{displayName(r.User), formatter.TimeAgo(r.CreatedAt), r.ID})
		}
		if err := output.PrintList("📥 Received", incoming, []string{"From", "Sent", "Request ID"}, rows); err != nil {
			return err
		}
	}
	if len(sent) > 0 {
		rows := make([][]string, 0, len(sent))
		for _, r := range sent {
			rows = append(rows, []string{displayName(r.Friend), formatter.TimeAgo(r.CreatedAt), r.ID})
		}
		if err := output.PrintList("📤 Sent", sent, []string{"To", "Sent", "Request ID"}, rows); err != nil {
			return err
		}
	}
	return nil
}

// Unfriend ends a friendship, or withdraws a pending request
func (fs *FriendService) Unfriend(ctx context.Context, username string, force bool) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	profile, err := lookupProfile(ctx, username)
	if err != nil {
		return err
	}

	existing, err := api.GetFriendship(ctx, creds.UserID, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if existing == nil {
		formatter.PrintWarning("You are not friends with @%s", profile.Username)
		return nil
	}

	if !force {
		confirm, err := prompter.PromptConfirm(fmt.Sprintf("Remove @%s from your friends?", profile.Username))
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := api.Unfriend(ctx, creds.UserID, profile.ID); err != nil {
		return fmt.Errorf("failed to unfriend: %w", err)
	}
	formatter.PrintSuccess("✓ Removed @%s", profile.Username)
	return nil
}
