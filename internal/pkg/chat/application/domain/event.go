package chat

import (
	"fmt"
	"strings"
	"time"
)

// EventType names a realtime event relayed to conversation subscribers.
type EventType string

const (
	EventMessageInserted EventType = "message.inserted"
	EventMessagesRead    EventType = "messages.read"
)

const conversationChannelPrefix = "messaging:conversation:"

// ConversationChannelPattern matches every conversation channel.
const ConversationChannelPattern = conversationChannelPrefix + "*"

// Event is the envelope published on a conversation channel and forwarded verbatim
// to websocket subscribers. Delivery is at-least-once; consumers dedupe on Message.ID.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Message        *Message  `json:"message,omitempty"`
	ReaderID       string    `json:"reader_id,omitempty"`
	ReadCount      int64     `json:"read_count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewMessageInsertedEvent(m Message) Event {
	return Event{
		Type:           EventMessageInserted,
		ConversationID: m.ConversationID,
		Message:        &m,
		OccurredAt:     m.CreatedAt,
	}
}

func NewMessagesReadEvent(conversationID, readerID string, count int64, at time.Time) Event {
	return Event{
		Type:           EventMessagesRead,
		ConversationID: conversationID,
		ReaderID:       readerID,
		ReadCount:      count,
		OccurredAt:     at,
	}
}

// Key identifies the event for deduplication: the message id for inserts, and the
// reader plus instant for read transitions.
func (e Event) Key() string {
	if e.Message != nil {
		return string(e.Type) + ":" + e.Message.ID
	}
	return fmt.Sprintf("%s:%s:%s:%d", e.Type, e.ConversationID, e.ReaderID, e.OccurredAt.UnixNano())
}

// Channel is the pub/sub channel the event belongs to.
func (e Event) Channel() string {
	return ConversationChannel(e.ConversationID)
}

func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// ConversationIDFromChannel is the inverse of ConversationChannel.
func ConversationIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, conversationChannelPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
