package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const messageColumns = "*,sender:profiles(*)"

// GetConversations lists conversations userID participates in, most recently active first
func GetConversations(ctx context.Context, userID string, page, pageSize int) (*PageResult[Conversation], error) {
	logger.Debug("Fetching conversations", "user_id", userID, "page", page)

	ids, err := conversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &PageResult[Conversation]{Page: page, PageSize: pageSize}, nil
	}

	var conversations []Conversation
	total, err := From("conversations").
		Select("*,conversation_participants(*,profile:profiles(*))").
		In("id", ids...).
		Order("updated_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &conversations)
	if err != nil {
		return nil, err
	}
	return &PageResult[Conversation]{Items: conversations, Total: total, Page: page, PageSize: pageSize}, nil
}

func conversationIDs(ctx context.Context, userID string) ([]string, error) {
	var rows []ConversationParticipant
	if _, err := From("conversation_participants").Select("conversation_id").Eq("user_id", userID).Get(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ConversationID)
	}
	return ids, nil
}

// FindDirectConversation returns the one-to-one conversation between two users, if any
func FindDirectConversation(ctx context.Context, userID, otherID string) (*Conversation, error) {
	ids, err := conversationIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	var shared []struct {
		ConversationID string       `json:"conversation_id"`
		Conversation   Conversation `json:"conversation"`
	}
	_, err = From("conversation_participants").
		Select("conversation_id,conversation:conversations(*)").
		Eq("user_id", otherID).
		In("conversation_id", ids...).
		Get(ctx, &shared)
	if err != nil {
		return nil, err
	}

	for _, s := range shared {
		if !s.Conversation.IsGroup {
			return &s.Conversation, nil
		}
	}
	return nil, nil
}

// GetOrCreateDirectConversation opens the conversation between two users,
// creating it with both participants when none exists yet
func GetOrCreateDirectConversation(ctx context.Context, userID, otherID string) (*Conversation, error) {
	logger.Debug("Opening direct conversation", "other_id", otherID)

	existing, err := FindDirectConversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var rows []Conversation
	if err := From("conversations").Insert(ctx, map[string]bool{"is_group": false}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no conversation")
	}
	conv := &rows[0]

	participants := []map[string]string{
		{"conversation_id": conv.ID, "user_id": userID},
		{"conversation_id": conv.ID, "user_id": otherID},
	}
	if err := From("conversation_participants").Insert(ctx, participants, nil); err != nil {
		return nil, fmt.Errorf("failed to add participants: %w", err)
	}
	return conv, nil
}

// SendMessage posts a message and bumps the conversation's activity time
func SendMessage(ctx context.Context, msg NewMessage) (*Message, error) {
	logger.Debug("Sending message", "conversation_id", msg.ConversationID)

	var rows []Message
	if err := From("messages").Select(messageColumns).Insert(ctx, msg, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no message")
	}
	sent := &rows[0]

	err := From("conversations").Eq("id", msg.ConversationID).
		Update(ctx, map[string]interface{}{"updated_at": sent.CreatedAt}, nil)
	if err != nil {
		logger.Warn("Failed to bump conversation", "conversation_id", msg.ConversationID, "error", err)
	}
	return sent, nil
}

// GetMessageThread returns a page of messages, newest first
func GetMessageThread(ctx context.Context, conversationID string, page, pageSize int) (*PageResult[Message], error) {
	logger.Debug("Fetching message thread", "conversation_id", conversationID, "page", page)

	var messages []Message
	total, err := From("messages").
		Select(messageColumns).
		Eq("conversation_id", conversationID).
		Order("created_at", false).
		Page(page, pageSize).
		Count().
		Get(ctx, &messages)
	if err != nil {
		return nil, err
	}
	return &PageResult[Message]{Items: messages, Total: total, Page: page, PageSize: pageSize}, nil
}

// MarkMessagesAsRead marks every message not sent by userID as read
func MarkMessagesAsRead(ctx context.Context, conversationID, userID string) error {
	logger.Debug("Marking messages read", "conversation_id", conversationID)
	return From("messages").
		Eq("conversation_id", conversationID).
		Neq("sender_id", userID).
		Is("is_read", "false").
		Update(ctx, map[string]bool{"is_read": true}, nil)
}

// GetUnreadMessageCount counts unread messages addressed to userID
func GetUnreadMessageCount(ctx context.Context, userID string) (int, error) {
	ids, err := conversationIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return From("messages").
		In("conversation_id", ids...).
		Neq("sender_id", userID).
		Is("is_read", "false").
		CountRows(ctx)
}

// DeleteMessage deletes one of the caller's messages
func DeleteMessage(ctx context.Context, messageID, userID string) error {
	logger.Debug("Deleting message", "message_id", messageID)
	return From("messages").Eq("id", messageID).Eq("sender_id", userID).Delete(ctx)
}
