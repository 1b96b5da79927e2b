package usecase

import (
	"context"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
}

// SendMessageUseCase appends a message to an existing conversation and announces it
// on the conversation channel.
type SendMessageUseCase struct {
	Repo   repository.ChatRepository
	Events EventSink
	Now    func() time.Time
}

func NewSendMessageUseCase(repo repository.ChatRepository, events EventSink) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Events: events}
}

// Execute persists the message in the sent state. Unknown conversation or sender
// yields chat.ErrNotFound.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	msg, err := chat.NewMessage(in.ConversationID, in.SenderID, in.Content, clock(uc.Now))
	if err != nil {
		return nil, err
	}

	saved, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, storeError("send_message", err)
	}
	emit(ctx, uc.Events, chat.NewMessageInsertedEvent(*saved))
	return saved, nil
}
