package chat

import "errors"

// Domain-level errors for messaging behaviors
var (
	ErrNotFound               = errors.New("chat: not found")
	ErrNotParticipant         = errors.New("chat: viewer is not a participant in the conversation")
	ErrEmptyMessage           = errors.New("chat: message content is empty")
	ErrInvalidMessage         = errors.New("chat: conversation_id and sender_id are required")
	ErrInvalidStatus          = errors.New("chat: invalid status")
	ErrInvalidViewer          = errors.New("chat: invalid viewer")
	ErrInvalidConversationKey = errors.New("chat: adopter_id and shelter_id are required")
)
