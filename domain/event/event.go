// Package event defines the real-time events pushed to live connections.
package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	PresenceType   Type = "presence"
	NewMessageType Type = "new_message"
)

// DomainEvent is anything the fanout path can push to a live connection.
type DomainEvent interface {
	EventType() Type
}

// PresenceChanged carries the full online-identity set after a membership change.
type PresenceChanged struct {
	Online []string `json:"online"`
}

func (PresenceChanged) EventType() Type { return PresenceType }

// NewMessage notifies a recipient that a message was durably stored for them.
type NewMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func (NewMessage) EventType() Type { return NewMessageType }
