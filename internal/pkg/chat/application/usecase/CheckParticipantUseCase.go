package usecase

import (
	"context"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

// CheckParticipantInput asks whether Viewer may act on a conversation.
type CheckParticipantInput struct {
	ConversationID string
	Viewer         chat.Viewer
}

// CheckParticipantUseCase ensures the viewer belongs to the conversation before any
// read, write or realtime join.
type CheckParticipantUseCase struct {
	Repo repository.ChatRepository
}

func NewCheckParticipantUseCase(repo repository.ChatRepository) *CheckParticipantUseCase {
	return &CheckParticipantUseCase{Repo: repo}
}

func (uc *CheckParticipantUseCase) Execute(ctx context.Context, in CheckParticipantInput) (*chat.Conversation, error) {
	if in.ConversationID == "" {
		return nil, validationError("conversation_id is required")
	}
	if err := in.Viewer.Validate(); err != nil {
		return nil, err
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, storeError("check_participant", err)
	}
	if !conv.HasParticipant(in.Viewer) {
		return nil, chat.ErrNotParticipant
	}
	return conv, nil
}
