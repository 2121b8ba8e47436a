package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
	"github.com/socialhub/socialhub-cli/pkg/realtime"
)

// MaxMessageLength bounds message text
const MaxMessageLength = 4000

// MessagingService manages direct messaging operations
type MessagingService struct{}

// NewMessagingService creates a new messaging service
func NewMessagingService() *MessagingService {
	return &MessagingService{}
}

// ListConversations displays your conversations, most recently active first
func (ms *MessagingService) ListConversations(ctx context.Context, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Listing conversations", "page", page, "page_size", pageSize)

	convs, err := api.GetConversations(ctx, creds.UserID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch conversations: %w", err)
	}
	unread, err := api.GetUnreadMessageCount(ctx, creds.UserID)
	if err != nil {
		logger.Warn("Failed to count unread messages", "error", err)
	}

	if !output.IsJSON() && len(convs.Items) == 0 {
		formatter.Printf("No conversations yet. Start one with 'socialhub message send <username>'.\n")
		return nil
	}

	rows := make([][]string, 0, len(convs.Items))
	for _, c := range convs.Items {
		rows = append(rows, []string{conversationName(&c, creds.UserID), formatter.TimeAgo(c.UpdatedAt), c.ID})
	}
	title := "💬 Conversations"
	if unread > 0 {
		title = fmt.Sprintf("💬 Conversations (%d unread)", unread)
	}
	if err := output.PrintList(title, convs.Items, []string{"With", "Last Activity", "ID"}, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(convs.Items), convs.Total, convs.Page, convs.PageSize)
	}
	return nil
}

// conversationName names a conversation by its other participants
func conversationName(c *api.Conversation, userID string) string {
	if c.Name != "" {
		return c.Name
	}
	var others []string
	for _, p := range c.Participants {
		if p.UserID != userID {
			others = append(others, handle(p.Profile))
		}
	}
	if len(others) == 0 {
		return "(just you)"
	}
	return strings.Join(others, ", ")
}

// openDirect resolves username and opens your conversation with them
func openDirect(ctx context.Context, userID, username string) (*api.Conversation, *api.Profile, error) {
	profile, err := lookupProfile(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if profile.ID == userID {
		return nil, nil, clierrors.ValidationError("username", "you cannot message yourself")
	}
	conv, err := api.GetOrCreateDirectConversation(ctx, userID, profile.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open conversation: %w", err)
	}
	return conv, profile, nil
}

// SendMessage sends content to username, prompting when content is empty
func (ms *MessagingService) SendMessage(ctx context.Context, username, content string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if content == "" {
		if content, err = prompter.PromptString("Message: "); err != nil {
			return err
		}
	}
	if content, err = requireText("message", content); err != nil {
		return err
	}
	if len([]rune(content)) > MaxMessageLength {
		return clierrors.ValidationError("message", fmt.Sprintf("must be at most %d characters", MaxMessageLength))
	}

	conv, profile, err := openDirect(ctx, creds.UserID, username)
	if err != nil {
		return err
	}

	msg, err := api.SendMessage(ctx, api.NewMessage{
		ConversationID: conv.ID,
		SenderID:       creds.UserID,
		Content:        content,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", msg)
	}
	formatter.PrintSuccess("✓ Message sent to @%s", profile.Username)
	return nil
}

// ViewThread shows your conversation with username, oldest message first,
// and marks what you received as read
func (ms *MessagingService) ViewThread(ctx context.Context, username string, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	profile, err := lookupProfile(ctx, username)
	if err != nil {
		return err
	}
	conv, err := api.FindDirectConversation(ctx, creds.UserID, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		if output.IsJSON() {
			return output.PrintList("", nil, nil, nil)
		}
		formatter.Printf("No messages with @%s yet.\n", profile.Username)
		return nil
	}

	thread, err := api.GetMessageThread(ctx, conv.ID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	if err := api.MarkMessagesAsRead(ctx, conv.ID, creds.UserID); err != nil {
		logger.Warn("Failed to mark messages read", "conversation_id", conv.ID, "error", err)
	}

	if output.IsJSON() {
		return output.Print("", thread)
	}

	formatter.Header(fmt.Sprintf("💬 @%s", profile.Username))
	// the page arrives newest first
	for i := len(thread.Items) - 1; i >= 0; i-- {
		displayMessage(&thread.Items[i], creds.UserID)
	}
	pageFooter(len(thread.Items), thread.Total, thread.Page, thread.PageSize)
	return nil
}

func displayMessage(m *api.Message, userID string) {
	who := handle(m.Sender)
	if m.SenderID == userID {
		who = "you"
	}
	formatter.Muted.Fprintf(output.Writer, "[%s] ", m.CreatedAt.Local().Format("Jan 2 15:04"))
	formatter.Bold.Fprintf(output.Writer, "%s: ", who)
	formatter.Printf("%s\n", m.Content)
}

// DeleteMessage removes one of your messages
func (ms *MessagingService) DeleteMessage(ctx context.Context, messageID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := api.DeleteMessage(ctx, messageID, creds.UserID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	formatter.PrintSuccess("✓ Message deleted")
	return nil
}

// WatchConversation prints new messages with username as they arrive
func (ms *MessagingService) WatchConversation(ctx context.Context, username string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	conv, profile, err := openDirect(ctx, creds.UserID, username)
	if err != nil {
		return err
	}

	names := map[string]string{creds.UserID: "you", profile.ID: "@" + profile.Username}
	var mu sync.Mutex

	sub := realtime.Subscription{
		Event:  "INSERT",
		Schema: "public",
		Table:  "messages",
		Filter: "conversation_id=eq." + conv.ID,
	}
	return watch(ctx, creds, fmt.Sprintf("💬 Watching your conversation with @%s", profile.Username), "messages:"+conv.ID, sub,
		func(change realtime.Change) {
			var m api.Message
			if err := change.Decode(&m); err != nil {
				logger.Warn("Undecodable message event", "error", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if output.IsJSON() {
				_ = output.Print("", m)
				return
			}
			formatter.Printf("[%s] ", eventTime())
			formatter.Bold.Fprintf(output.Writer, "%s: ", names[m.SenderID])
			formatter.Printf("%s\n", m.Content)

			if m.SenderID != creds.UserID {
				if err := api.MarkMessagesAsRead(context.Background(), conv.ID, creds.UserID); err != nil {
					logger.Debug("Failed to mark message read", "error", err)
				}
			}
		})
}
