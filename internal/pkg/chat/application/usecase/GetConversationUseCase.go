package usecase

import (
	"context"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

type GetConversationInput struct {
	ConversationID string
}

type GetConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewGetConversationUseCase(repo repository.ChatRepository) *GetConversationUseCase {
	return &GetConversationUseCase{Repo: repo}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, in GetConversationInput) (*chat.ConversationSummary, error) {
	if in.ConversationID == "" {
		return nil, validationError("conversation_id is required")
	}
	summary, err := uc.Repo.GetConversationSummary(ctx, in.ConversationID)
	if err != nil {
		return nil, storeError("get_conversation", err)
	}
	return summary, nil
}
