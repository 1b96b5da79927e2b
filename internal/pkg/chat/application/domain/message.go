package chat

import (
	"strings"
	"time"
)

// MessageStatus progresses sent -> delivered -> read and never regresses.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

func (s MessageStatus) Valid() bool {
	return s.rank() > 0
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

// Message is an immutable log entry in a conversation; only Status/ReadAt move forward.
type Message struct {
	ID             string        `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversation_id"`
	SenderID       string        `db:"sender_id" json:"sender_id"`
	Content        string        `db:"content" json:"content"`
	Status         MessageStatus `db:"status" json:"status"`
	ReadAt         *time.Time    `db:"read_at" json:"read_at"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`

	Sender *UserProfile `json:"sender,omitempty"`
}

// NewMessage builds a validated, not yet persisted message in the sent state.
func NewMessage(conversationID, senderID, content string, now time.Time) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, ErrInvalidMessage
	}
	// Whitespace only counts for the emptiness check; the body is stored as written.
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         MessageStatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsUnreadFor is the single definition of "unread": still in the sent state and
// written by someone other than userID.
func (m Message) IsUnreadFor(userID string) bool {
	return m.Status == MessageStatusSent && m.SenderID != userID
}

// MarkRead moves the message to read. It reports false when the message was already read.
func (m *Message) MarkRead(at time.Time) bool {
	if !m.Status.CanAdvanceTo(MessageStatusRead) {
		return false
	}
	ts := at
	m.Status = MessageStatusRead
	m.ReadAt = &ts
	m.UpdatedAt = at
	return true
}
