// Package timeline reconciles the messages a client sees from three sources: REST
// fetches, optimistic local sends and realtime events. Entries are keyed by message
// id, so an event delivered twice or racing the REST response is applied once.
package timeline

import (
	"sort"
	"sync"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/google/uuid"
)

// Timeline is one conversation as seen by one viewer. It is safe for concurrent use.
type Timeline struct {
	mu       sync.Mutex
	viewerID string
	summary  chat.ConversationSummary
	messages []chat.Message
	ids      map[string]struct{}
	pending  map[string]struct{}
	now      func() time.Time
}

// New starts a timeline for viewerID from an inbox summary.
func New(viewerID string, summary chat.ConversationSummary) *Timeline {
	return &Timeline{
		viewerID: viewerID,
		summary:  summary,
		ids:      make(map[string]struct{}),
		pending:  make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Load merges a page of messages fetched over REST. Summary counters are left alone
// because the server already accounted for them.
func (t *Timeline) Load(msgs []chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		t.insertLocked(m)
	}
}

// Merge applies a realtime message. It reports false when the id was already known.
func (t *Timeline) Merge(m chat.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.insertLocked(m) {
		return false
	}

	if t.summary.LastMessage == nil || !m.CreatedAt.Before(t.summary.LastMessage.CreatedAt) {
		last := m
		t.summary.LastMessage = &last
		t.summary.Touch(m.CreatedAt)
	}
	if m.IsUnreadFor(t.viewerID) {
		t.summary.UnreadCount++
	}
	return true
}

// ApplyEvent dispatches a realtime envelope. It reports whether anything changed.
func (t *Timeline) ApplyEvent(e chat.Event) bool {
	switch e.Type {
	case chat.EventMessageInserted:
		if e.Message == nil {
			return false
		}
		return t.Merge(*e.Message)
	case chat.EventMessagesRead:
		return t.ApplyRead(e.ReaderID, e.OccurredAt) > 0
	}
	return false
}

// AddOptimistic shows a message before the server confirmed it and returns the
// temporary id to pass to Confirm or Rollback.
func (t *Timeline) AddOptimistic(content string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tempID := "tmp-" + uuid.NewString()
	now := t.now()
	t.insertLocked(chat.Message{
		ID:             tempID,
		ConversationID: t.summary.ID,
		SenderID:       t.viewerID,
		Content:        content,
		Status:         chat.MessageStatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	t.pending[tempID] = struct{}{}
	return tempID
}

// Confirm replaces the optimistic entry with the stored message. If the realtime
// echo arrived first the optimistic entry is simply dropped.
func (t *Timeline) Confirm(tempID string, m chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(tempID)
	t.insertLocked(m)
	if t.summary.LastMessage == nil || !m.CreatedAt.Before(t.summary.LastMessage.CreatedAt) {
		last := m
		t.summary.LastMessage = &last
		t.summary.Touch(m.CreatedAt)
	}
}

// Rollback removes an optimistic entry whose send failed.
func (t *Timeline) Rollback(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(tempID)
}

// ApplyRead marks messages written by someone other than readerID as read and
// returns how many changed. When the viewer is the reader, the unread badge clears.
func (t *Timeline) ApplyRead(readerID string, at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := range t.messages {
		m := &t.messages[i]
		if _, optimistic := t.pending[m.ID]; optimistic {
			continue
		}
		if m.SenderID != readerID && m.MarkRead(at) {
			n++
		}
	}
	if readerID == t.viewerID {
		t.summary.UnreadCount = 0
	}
	return n
}

// Pending reports whether tempID is still awaiting confirmation.
func (t *Timeline) Pending(tempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[tempID]
	return ok
}

// Messages returns a snapshot in chronological order.
func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]chat.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Summary() chat.ConversationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// insertLocked keeps messages ordered by CreatedAt; equal timestamps keep arrival order.
func (t *Timeline) insertLocked(m chat.Message) bool {
	if _, seen := t.ids[m.ID]; seen {
		return false
	}
	at := sort.Search(len(t.messages), func(i int) bool {
		return t.messages[i].CreatedAt.After(m.CreatedAt)
	})
	t.messages = append(t.messages, chat.Message{})
	copy(t.messages[at+1:], t.messages[at:])
	t.messages[at] = m
	t.ids[m.ID] = struct{}{}
	return true
}

func (t *Timeline) removeLocked(id string) {
	if _, ok := t.ids[id]; !ok {
		return
	}
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}
	delete(t.ids, id)
	delete(t.pending, id)
}
