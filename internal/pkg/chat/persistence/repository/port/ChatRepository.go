package repository

import (
	"context"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the messaging domain.
// Implementations return chat.ErrNotFound for missing rows and foreign keys; any
// other error is treated as a store failure by the use cases.
type ChatRepository interface {
	// ListConversationSummaries returns every conversation the viewer takes part in,
	// ordered by last_message_at DESC NULLS LAST, created_at DESC.
	ListConversationSummaries(ctx context.Context, viewer chat.Viewer) ([]chat.ConversationSummary, error)
	// GetConversationSummary returns one enriched conversation with UnreadCount 0.
	GetConversationSummary(ctx context.Context, conversationID string) (*chat.ConversationSummary, error)
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)
	// FindOrCreateConversation returns the conversation for key, creating it if needed.
	// A nil PetID is its own bucket.
	FindOrCreateConversation(ctx context.Context, key chat.ConversationKey) (*chat.Conversation, error)

	// SaveMessage inserts m and advances the parent's last_message_at in one transaction.
	// The returned message carries its generated id and the sender profile.
	SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error)
	// GetRecentMessages returns up to limit messages, newest first.
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
	// MarkConversationRead flips every sent message not written by readerID to read.
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, viewer chat.Viewer) (int, error)

	UpdateConversationStatus(ctx context.Context, conversationID string, status chat.ConversationStatus, at time.Time) (*chat.Conversation, error)
	Ping(ctx context.Context) error
}
