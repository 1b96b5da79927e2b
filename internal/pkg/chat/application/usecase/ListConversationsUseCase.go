package usecase

import (
	"context"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

type ListConversationsInput struct {
	Viewer chat.Viewer
}

// ListConversationsUseCase returns the viewer's inbox, most recently active first.
type ListConversationsUseCase struct {
	Repo repository.ChatRepository
}

func NewListConversationsUseCase(repo repository.ChatRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.ConversationSummary, error) {
	if err := in.Viewer.Validate(); err != nil {
		return nil, err
	}
	summaries, err := uc.Repo.ListConversationSummaries(ctx, in.Viewer)
	if err != nil {
		return nil, storeError("list_conversations", err)
	}
	return summaries, nil
}
