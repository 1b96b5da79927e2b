package usecase

import (
	"context"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

type UpdateConversationStatusInput struct {
	ConversationID string
	Status         string
}

// UpdateConversationStatusUseCase archives, closes or reactivates a conversation.
type UpdateConversationStatusUseCase struct {
	Repo repository.ChatRepository
	Now  func() time.Time
}

func NewUpdateConversationStatusUseCase(repo repository.ChatRepository) *UpdateConversationStatusUseCase {
	return &UpdateConversationStatusUseCase{Repo: repo}
}

func (uc *UpdateConversationStatusUseCase) Execute(ctx context.Context, in UpdateConversationStatusInput) (*chat.Conversation, error) {
	if in.ConversationID == "" {
		return nil, validationError("conversation_id is required")
	}
	status, err := chat.ParseConversationStatus(in.Status)
	if err != nil {
		return nil, err
	}
	conv, err := uc.Repo.UpdateConversationStatus(ctx, in.ConversationID, status, clock(uc.Now))
	if err != nil {
		return nil, storeError("update_conversation_status", err)
	}
	return conv, nil
}
