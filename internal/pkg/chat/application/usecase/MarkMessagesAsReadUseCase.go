package usecase

import (
	"context"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

type MarkMessagesAsReadInput struct {
	ConversationID string
	UserID         string
}

// MarkMessagesAsReadUseCase flips every sent message from the other party to read.
// Repeating it is a no-op; the caller's own messages are never touched.
type MarkMessagesAsReadUseCase struct {
	Repo   repository.ChatRepository
	Events EventSink
	Now    func() time.Time
}

func NewMarkMessagesAsReadUseCase(repo repository.ChatRepository, events EventSink) *MarkMessagesAsReadUseCase {
	return &MarkMessagesAsReadUseCase{Repo: repo, Events: events}
}

// Execute returns the number of messages that transitioned.
func (uc *MarkMessagesAsReadUseCase) Execute(ctx context.Context, in MarkMessagesAsReadInput) (int64, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return 0, validationError("conversation_id and user_id are required")
	}
	now := clock(uc.Now)

	n, err := uc.Repo.MarkConversationRead(ctx, in.ConversationID, in.UserID, now)
	if err != nil {
		return 0, storeError("mark_messages_as_read", err)
	}
	if n > 0 {
		emit(ctx, uc.Events, chat.NewMessagesReadEvent(in.ConversationID, in.UserID, n, now))
	}
	return n, nil
}
