package chat

import (
	"strings"
	"time"
)

// ConversationStatus is the lifecycle state of a conversation. Conversations are
// never deleted; archival happens through status only.
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusArchived ConversationStatus = "archived"
	ConversationStatusClosed   ConversationStatus = "closed"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationStatusActive, ConversationStatusArchived, ConversationStatusClosed:
		return true
	}
	return false
}

// ParseConversationStatus accepts a status name case-insensitively.
func ParseConversationStatus(raw string) (ConversationStatus, error) {
	s := ConversationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Conversation is a 1:1 thread between one adopter and one shelter, optionally about a pet.
type Conversation struct {
	ID            string             `db:"id" json:"id"`
	AdopterID     string             `db:"adopter_id" json:"adopter_id"`
	ShelterID     string             `db:"shelter_id" json:"shelter_id"`
	PetID         *string            `db:"pet_id" json:"pet_id"`
	Status        ConversationStatus `db:"status" json:"status"`
	LastMessageAt *time.Time         `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// Key returns the identity triple used for find-or-create.
func (c Conversation) Key() ConversationKey {
	return ConversationKey{AdopterID: c.AdopterID, ShelterID: c.ShelterID, PetID: c.PetID}
}

// HasParticipant tells whether the viewer is one of the two parties.
func (c Conversation) HasParticipant(v Viewer) bool {
	switch v.Role {
	case RoleAdopter:
		return v.UserID != "" && c.AdopterID == v.UserID
	case RoleShelter:
		return v.ShelterID != "" && c.ShelterID == v.ShelterID
	}
	return false
}

// Touch advances LastMessageAt to at unless it already points later.
func (c *Conversation) Touch(at time.Time) {
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		ts := at
		c.LastMessageAt = &ts
	}
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
}

// ConversationKey identifies a conversation by its participants and optional pet.
// A nil PetID is a distinct "no pet" bucket and never matches a conversation with a pet.
type ConversationKey struct {
	AdopterID string
	ShelterID string
	PetID     *string
}

// Validate checks the mandatory parts of the key.
func (k ConversationKey) Validate() error {
	if k.AdopterID == "" || k.ShelterID == "" {
		return ErrInvalidConversationKey
	}
	if k.PetID != nil && *k.PetID == "" {
		return ErrInvalidConversationKey
	}
	return nil
}

// Matches reports whether c has exactly this identity.
func (k ConversationKey) Matches(c Conversation) bool {
	if c.AdopterID != k.AdopterID || c.ShelterID != k.ShelterID {
		return false
	}
	if k.PetID == nil || c.PetID == nil {
		return k.PetID == nil && c.PetID == nil
	}
	return *k.PetID == *c.PetID
}

// ConversationSummary is a conversation enriched for display: both parties, the pet,
// the latest message and the viewer's unread count.
type ConversationSummary struct {
	Conversation
	Adopter     UserProfile    `json:"adopter"`
	Shelter     ShelterProfile `json:"shelter"`
	Pet         *PetProfile    `json:"pet,omitempty"`
	LastMessage *Message       `json:"last_message,omitempty"`
	UnreadCount int            `json:"unread_count"`
}
