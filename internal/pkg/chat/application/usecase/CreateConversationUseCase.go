package usecase

import (
	"context"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
)

// CreateConversationInput opens (or reopens) an adopter's thread with a shelter.
// PetID nil means a general inquiry, which is its own conversation.
type CreateConversationInput struct {
	AdopterID      string
	ShelterID      string
	PetID          *string
	InitialMessage string
}

// CreateConversationUseCase finds or creates the conversation for the triple and
// always appends InitialMessage from the adopter.
type CreateConversationUseCase struct {
	Repo   repository.ChatRepository
	Events EventSink
	Now    func() time.Time
}

func NewCreateConversationUseCase(repo repository.ChatRepository, events EventSink) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo, Events: events}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*chat.ConversationSummary, error) {
	key := chat.ConversationKey{AdopterID: in.AdopterID, ShelterID: in.ShelterID, PetID: in.PetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	// Validate the message before creating anything so a bad request leaves no empty thread.
	draft, err := chat.NewMessage("pending", in.AdopterID, in.InitialMessage, clock(uc.Now))
	if err != nil {
		return nil, err
	}

	conv, err := uc.Repo.FindOrCreateConversation(ctx, key)
	if err != nil {
		return nil, storeError("create_conversation", err)
	}

	draft.ConversationID = conv.ID
	saved, err := uc.Repo.SaveMessage(ctx, *draft)
	if err != nil {
		return nil, storeError("create_conversation", err)
	}
	emit(ctx, uc.Events, chat.NewMessageInsertedEvent(*saved))

	summary, err := uc.Repo.GetConversationSummary(ctx, conv.ID)
	if err != nil {
		return nil, storeError("create_conversation", err)
	}
	summary.UnreadCount = 0
	return summary, nil
}
