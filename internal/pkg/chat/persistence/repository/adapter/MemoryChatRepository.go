package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

// MemoryChatRepository keeps everything in process. It backs DB_DRIVER=memory and the
// use case tests, and emulates the foreign keys and the unique triple of the SQL schema.
type MemoryChatRepository struct {
	mu sync.RWMutex

	users    map[string]chat.UserProfile
	shelters map[string]chat.ShelterProfile
	pets     map[string]chat.PetProfile

	conversations map[string]*chat.Conversation
	convOrder     []string
	messages      map[string][]*chat.Message

	now func() time.Time
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		users:         make(map[string]chat.UserProfile),
		shelters:      make(map[string]chat.ShelterProfile),
		pets:          make(map[string]chat.PetProfile),
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string][]*chat.Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryChatRepository) AddUser(u chat.UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryChatRepository) AddShelter(s chat.ShelterProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shelters[s.ID] = s
}

func (r *MemoryChatRepository) AddPet(p chat.PetProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pets[p.ID] = p
}

func (r *MemoryChatRepository) ListConversationSummaries(_ context.Context, viewer chat.Viewer) ([]chat.ConversationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]chat.ConversationSummary, 0)
	for _, id := range r.convOrder {
		c := r.conversations[id]
		if !c.HasParticipant(viewer) {
			continue
		}
		s := r.summaryLocked(c)
		for _, m := range r.messages[id] {
			if m.IsUnreadFor(viewer.UserID) {
				s.UnreadCount++
			}
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (r *MemoryChatRepository) GetConversationSummary(_ context.Context, conversationID string) (*chat.ConversationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	s := r.summaryLocked(c)
	return &s, nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, conversationID string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryChatRepository) FindOrCreateConversation(_ context.Context, key chat.ConversationKey) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.convOrder {
		if c := r.conversations[id]; key.Matches(*c) {
			cp := *c
			return &cp, nil
		}
	}

	if _, ok := r.users[key.AdopterID]; !ok {
		return nil, chat.ErrNotFound
	}
	if _, ok := r.shelters[key.ShelterID]; !ok {
		return nil, chat.ErrNotFound
	}
	var petID *string
	if key.PetID != nil {
		if _, ok := r.pets[*key.PetID]; !ok {
			return nil, chat.ErrNotFound
		}
		id := *key.PetID
		petID = &id
	}

	now := r.now()
	c := &chat.Conversation{
		ID:        uuid.NewString(),
		AdopterID: key.AdopterID,
		ShelterID: key.ShelterID,
		PetID:     petID,
		Status:    chat.ConversationStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.conversations[c.ID] = c
	r.convOrder = append(r.convOrder, c.ID)

	cp := *c
	return &cp, nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[m.ConversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	sender, ok := r.users[m.SenderID]
	if !ok {
		return nil, chat.ErrNotFound
	}

	stored := m
	stored.ID = uuid.NewString()
	stored.Status = chat.MessageStatusSent
	stored.ReadAt = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.Sender = nil

	r.messages[c.ID] = append(r.messages[c.ID], &stored)
	c.Touch(stored.CreatedAt)

	out := stored
	out.Sender = &sender
	return &out, nil
}

func (r *MemoryChatRepository) GetRecentMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[conversationID]
	ordered := make([]*chat.Message, len(stored))
	copy(ordered, stored)
	// Stable sort keeps insertion order for equal timestamps; reversed below.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	msgs := make([]chat.Message, 0, min(limit, len(ordered)))
	for i := len(ordered) - 1; i >= 0 && len(msgs) < limit; i-- {
		msgs = append(msgs, r.withSenderLocked(*ordered[i]))
	}
	return msgs, nil
}

func (r *MemoryChatRepository) MarkConversationRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, m := range r.messages[conversationID] {
		if m.Status == chat.MessageStatusSent && m.SenderID != readerID && m.MarkRead(at) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryChatRepository) CountUnread(_ context.Context, viewer chat.Viewer) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for id, c := range r.conversations {
		if !c.HasParticipant(viewer) {
			continue
		}
		for _, m := range r.messages[id] {
			if m.IsUnreadFor(viewer.UserID) {
				total++
			}
		}
	}
	return total, nil
}

func (r *MemoryChatRepository) UpdateConversationStatus(_ context.Context, conversationID string, status chat.ConversationStatus, at time.Time) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	cp := *c
	return &cp, nil
}

func (r *MemoryChatRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryChatRepository) summaryLocked(c *chat.Conversation) chat.ConversationSummary {
	s := chat.ConversationSummary{
		Conversation: *c,
		Adopter:      r.users[c.AdopterID],
		Shelter:      r.shelters[c.ShelterID],
	}
	if c.PetID != nil {
		if p, ok := r.pets[*c.PetID]; ok {
			s.Pet = &p
		}
	}

	var last *chat.Message
	for _, m := range r.messages[c.ID] {
		if last == nil || !m.CreatedAt.Before(last.CreatedAt) {
			last = m
		}
	}
	if last != nil {
		m := r.withSenderLocked(*last)
		s.LastMessage = &m
	}
	return s
}

func (r *MemoryChatRepository) withSenderLocked(m chat.Message) chat.Message {
	if u, ok := r.users[m.SenderID]; ok {
		m.Sender = &u
	}
	return m
}
