package usecase

import (
	"context"

	"petchat/internal/infrastructure/logger"
	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

type GetUnreadMessageCountInput struct {
	Viewer chat.Viewer
}

// GetUnreadMessageCountUseCase sums unread messages over the viewer's conversations.
// It soft-fails: a store error is logged and reported as zero so badge rendering
// never breaks the page.
type GetUnreadMessageCountUseCase struct {
	Repo repository.ChatRepository
}

func NewGetUnreadMessageCountUseCase(repo repository.ChatRepository) *GetUnreadMessageCountUseCase {
	return &GetUnreadMessageCountUseCase{Repo: repo}
}

func (uc *GetUnreadMessageCountUseCase) Execute(ctx context.Context, in GetUnreadMessageCountInput) (int, error) {
	if err := in.Viewer.Validate(); err != nil {
		return 0, err
	}
	n, err := uc.Repo.CountUnread(ctx, in.Viewer)
	if err != nil {
		logger.Warn().Err(err).
			Str("usecase", "get_unread_message_count").
			Str("user_id", in.Viewer.UserID).
			Msg("unread count unavailable, reporting 0")
		return 0, nil
	}
	return n, nil
}
