package usecase

import (
	"context"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// GetMessagesInput carries parameters to fetch the tail of a conversation.
// A non-positive Limit means DefaultMessageLimit.
type GetMessagesInput struct {
	ConversationID string
	Limit          int
}

// GetMessagesUseCase fetches the most recent messages of a conversation
type GetMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessagesUseCase(repo repository.ChatRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Repo: repo}
}

// Execute returns up to Limit messages in chronological order (oldest first).
func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]chat.Message, error) {
	if in.ConversationID == "" {
		return nil, validationError("conversation_id is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	msgs, err := uc.Repo.GetRecentMessages(ctx, in.ConversationID, limit)
	if err != nil {
		return nil, storeError("get_messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
