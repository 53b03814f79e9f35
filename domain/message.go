// Package domain contains core concepts of the chat relay.
// This file defines Message, the immutable unit of exchange between two users.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a durable chat record. It is never mutated after creation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
