package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"petchat/internal/infrastructure/logger"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/persistence/repository/adapter"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const (
	adopterID = "11111111-1111-1111-1111-111111111111"
	staffID   = "22222222-2222-2222-2222-222222222222"
	shelterID = "33333333-3333-3333-3333-333333333333"
	petID     = "44444444-4444-4444-4444-444444444444"
)

var (
	adopter = chat.Viewer{UserID: adopterID, Role: chat.RoleAdopter}
	shelter = chat.Viewer{UserID: staffID, Role: chat.RoleShelter, ShelterID: shelterID}
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingSink struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (s *recordingSink) Emit(_ context.Context, e chat.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Types() []chat.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo  *adapter.MemoryChatRepository
	sink  *recordingSink
	clock *stepClock

	create *CreateConversationUseCase
	send   *SendMessageUseCase
	read   *MarkMessagesAsReadUseCase
	list   *ListConversationsUseCase
	msgs   *GetMessagesUseCase
	unread *GetUnreadMessageCountUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := adapter.NewMemoryChatRepository()
	repo.AddUser(chat.UserProfile{ID: adopterID, Name: "Ana"})
	repo.AddUser(chat.UserProfile{ID: staffID, Name: "Sam"})
	repo.AddShelter(chat.ShelterProfile{ID: shelterID, Name: "Happy Paws"})
	repo.AddPet(chat.PetProfile{ID: petID, Name: "Buddy"})

	f := &fixture{
		repo:  repo,
		sink:  &recordingSink{},
		clock: &stepClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.create = NewCreateConversationUseCase(repo, f.sink)
	f.create.Now = f.clock.Now
	f.send = NewSendMessageUseCase(repo, f.sink)
	f.send.Now = f.clock.Now
	f.read = NewMarkMessagesAsReadUseCase(repo, f.sink)
	f.read.Now = f.clock.Now
	f.list = NewListConversationsUseCase(repo)
	f.msgs = NewGetMessagesUseCase(repo)
	f.unread = NewGetUnreadMessageCountUseCase(repo)
	return f
}

func (f *fixture) unreadFor(t *testing.T, v chat.Viewer) int {
	t.Helper()
	n, err := f.unread.Execute(context.Background(), GetUnreadMessageCountInput{Viewer: v})
	require.NoError(t, err)
	return n
}

func pet() *string {
	id := petID
	return &id
}

func TestNewInquiryScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID:      adopterID,
		ShelterID:      shelterID,
		PetID:          pet(),
		InitialMessage: "Is Buddy still available?",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.UnreadCount)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "Is Buddy still available?", summary.LastMessage.Content)
	assert.Equal(t, "Buddy", summary.Pet.Name)
	assert.Equal(t, "Happy Paws", summary.Shelter.Name)

	list, err := f.list.Execute(ctx, ListConversationsInput{Viewer: shelter})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, summary.ID, list[0].ID)
	assert.Equal(t, 1, list[0].UnreadCount)
	assert.Equal(t, "Ana", list[0].Adopter.Name)

	assert.Equal(t, 1, f.unreadFor(t, shelter))
	assert.Equal(t, 0, f.unreadFor(t, adopter))
	assert.Equal(t, []chat.EventType{chat.EventMessageInserted}, f.sink.Types())
}

func TestUnreadThenReadScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conv, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "Hello",
	})
	require.NoError(t, err)

	for _, body := range []string{"Hi Ana", "Buddy is available", "Want to visit?"} {
		_, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: staffID, Content: body})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.unreadFor(t, adopter))

	n, err := f.read.Execute(ctx, MarkMessagesAsReadInput{ConversationID: conv.ID, UserID: adopterID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 0, f.unreadFor(t, adopter))

	n, err = f.read.Execute(ctx, MarkMessagesAsReadInput{ConversationID: conv.ID, UserID: adopterID})
	require.NoError(t, err)
	assert.Zero(t, n)

	// The adopter's own opener is still unread for the shelter.
	assert.Equal(t, 1, f.unreadFor(t, shelter))

	msgs, err := f.msgs.Execute(ctx, GetMessagesInput{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, chat.MessageStatusSent, msgs[0].Status)
	assert.Nil(t, msgs[0].ReadAt)
	for _, m := range msgs[1:] {
		assert.Equal(t, chat.MessageStatusRead, m.Status)
		assert.NotNil(t, m.ReadAt)
	}

	assert.Equal(t, []chat.EventType{
		chat.EventMessageInserted,
		chat.EventMessageInserted,
		chat.EventMessageInserted,
		chat.EventMessageInserted,
		chat.EventMessagesRead,
	}, f.sink.Types())
}

func TestCreateConversationIsIdempotentPerTriple(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, PetID: pet(), InitialMessage: "first",
	})
	require.NoError(t, err)
	second, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, PetID: pet(), InitialMessage: "second",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	general, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "general question",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, general.ID)

	msgs, err := f.msgs.Execute(ctx, GetMessagesInput{ConversationID: first.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)

	list, err := f.list.Execute(ctx, ListConversationsInput{Viewer: adopter})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, general.ID, list[0].ID)
}

func TestCreateConversationRejectsEmptyMessageWithoutCreating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "   ",
	})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = f.create.Execute(ctx, CreateConversationInput{AdopterID: adopterID, InitialMessage: "hi"})
	assert.ErrorIs(t, err, chat.ErrInvalidConversationKey)

	list, err := f.list.Execute(ctx, ListConversationsInput{Viewer: adopter})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBothSendPathsAdvanceLastMessageAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, summary.LastMessageAt)
	assert.Equal(t, summary.LastMessage.CreatedAt, *summary.LastMessageAt)

	reply, err := f.send.Execute(ctx, SendMessageInput{ConversationID: summary.ID, SenderID: staffID, Content: "hi"})
	require.NoError(t, err)

	conv, err := f.repo.GetConversation(ctx, summary.ID)
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessageAt)
	assert.Equal(t, reply.CreatedAt, *conv.LastMessageAt)
	assert.True(t, conv.LastMessageAt.After(*summary.LastMessageAt))
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "hello",
	})
	require.NoError(t, err)

	t.Run("returns message with sender profile", func(t *testing.T) {
		m, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: staffID, Content: "  welcome  "})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "  welcome  ", m.Content)
		assert.Equal(t, chat.MessageStatusSent, m.Status)
		assert.Nil(t, m.ReadAt)
		require.NotNil(t, m.Sender)
		assert.Equal(t, "Sam", m.Sender.Name)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := f.send.Execute(ctx, SendMessageInput{ConversationID: "nope", SenderID: staffID, Content: "hi"})
		assert.ErrorIs(t, err, chat.ErrNotFound)
	})

	t.Run("unknown sender", func(t *testing.T) {
		_, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "ghost", Content: "hi"})
		assert.ErrorIs(t, err, chat.ErrNotFound)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: staffID, Content: "\n"})
		assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	})
}

func TestSendingNeverCountsAsUnreadForSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "one",
	})
	require.NoError(t, err)

	before := f.unreadFor(t, shelter)
	_, err = f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: adopterID, Content: "two"})
	require.NoError(t, err)

	assert.Equal(t, before+1, f.unreadFor(t, shelter))
	assert.Equal(t, 0, f.unreadFor(t, adopter))

	// Reading as the sender touches nothing.
	n, err := f.read.Execute(ctx, MarkMessagesAsReadInput{ConversationID: conv.ID, UserID: adopterID})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before+1, f.unreadFor(t, shelter))
}

func TestGetMessagesLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "start",
	})
	require.NoError(t, err)
	for i := 0; i < MaxMessageLimit+10; i++ {
		_, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: staffID, Content: "ping"})
		require.NoError(t, err)
	}
	last, err := f.send.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: staffID, Content: "latest"})
	require.NoError(t, err)

	msgs, err := f.msgs.Execute(ctx, GetMessagesInput{ConversationID: conv.ID})
	require.NoError(t, err)
	assert.Len(t, msgs, DefaultMessageLimit)
	assert.Equal(t, last.ID, msgs[len(msgs)-1].ID)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	msgs, err = f.msgs.Execute(ctx, GetMessagesInput{ConversationID: conv.ID, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, msgs, MaxMessageLimit)

	msgs, err = f.msgs.Execute(ctx, GetMessagesInput{ConversationID: conv.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "latest", msgs[1].Content)

	_, err = f.msgs.Execute(ctx, GetMessagesInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

type failingRepo struct {
	repository.ChatRepository
	err error
}

func (r failingRepo) CountUnread(context.Context, chat.Viewer) (int, error) {
	return 0, r.err
}

func (r failingRepo) SaveMessage(context.Context, chat.Message) (*chat.Message, error) {
	return nil, r.err
}

func TestUnreadCountSoftFails(t *testing.T) {
	uc := NewGetUnreadMessageCountUseCase(failingRepo{err: errors.New("connection refused")})

	n, err := uc.Execute(context.Background(), GetUnreadMessageCountInput{Viewer: adopter})
	assert.NoError(t, err)
	assert.Zero(t, n)

	_, err = uc.Execute(context.Background(), GetUnreadMessageCountInput{Viewer: chat.Viewer{UserID: "x"}})
	assert.ErrorIs(t, err, chat.ErrInvalidViewer)
}

func TestStoreFailuresWrapPersistence(t *testing.T) {
	uc := NewSendMessageUseCase(failingRepo{err: errors.New("deadlock")}, NopEventSink{})

	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: "c", SenderID: "u", Content: "hi"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestEmitFailureDoesNotFailSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sink.err = errors.New("queue down")

	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "hello",
	})
	require.NoError(t, err)
	_, err = f.send.Execute(ctx, SendMessageInput{ConversationID: summary.ID, SenderID: staffID, Content: "hi"})
	require.NoError(t, err)
	assert.Len(t, f.sink.Types(), 2)
}

func TestInsertedEventCarriesSenderProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "hello",
	})
	require.NoError(t, err)

	require.Len(t, f.sink.events, 1)
	e := f.sink.events[0]
	assert.Equal(t, summary.ID, e.ConversationID)
	require.NotNil(t, e.Message)
	assert.Equal(t, summary.LastMessage.ID, e.Message.ID)
	assert.Equal(t, "Ana", e.Message.Sender.Name)
}

func TestCheckParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, InitialMessage: "hello",
	})
	require.NoError(t, err)
	uc := NewCheckParticipantUseCase(f.repo)

	_, err = uc.Execute(ctx, CheckParticipantInput{ConversationID: summary.ID, Viewer: adopter})
	assert.NoError(t, err)
	_, err = uc.Execute(ctx, CheckParticipantInput{ConversationID: summary.ID, Viewer: shelter})
	assert.NoError(t, err)

	stranger := chat.Viewer{UserID: "55555555-5555-5555-5555-555555555555", Role: chat.RoleAdopter}
	_, err = uc.Execute(ctx, CheckParticipantInput{ConversationID: summary.ID, Viewer: stranger})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	_, err = uc.Execute(ctx, CheckParticipantInput{ConversationID: "missing", Viewer: adopter})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestGetAndUpdateConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	summary, err := f.create.Execute(ctx, CreateConversationInput{
		AdopterID: adopterID, ShelterID: shelterID, PetID: pet(), InitialMessage: "hello",
	})
	require.NoError(t, err)

	update := NewUpdateConversationStatusUseCase(f.repo)
	conv, err := update.Execute(ctx, UpdateConversationStatusInput{ConversationID: summary.ID, Status: "archived"})
	require.NoError(t, err)
	assert.Equal(t, chat.ConversationStatusArchived, conv.Status)

	_, err = update.Execute(ctx, UpdateConversationStatusInput{ConversationID: summary.ID, Status: "deleted"})
	assert.ErrorIs(t, err, chat.ErrInvalidStatus)
	_, err = update.Execute(ctx, UpdateConversationStatusInput{ConversationID: "missing", Status: "closed"})
	assert.ErrorIs(t, err, chat.ErrNotFound)

	got, err := NewGetConversationUseCase(f.repo).Execute(ctx, GetConversationInput{ConversationID: summary.ID})
	require.NoError(t, err)
	assert.Equal(t, chat.ConversationStatusArchived, got.Status)
	assert.Equal(t, "Buddy", got.Pet.Name)
	assert.Equal(t, 0, got.UnreadCount)

	_, err = NewGetConversationUseCase(f.repo).Execute(ctx, GetConversationInput{ConversationID: "missing"})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}
