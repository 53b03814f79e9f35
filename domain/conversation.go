package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups the message history of one unordered pair of identities.
// There is at most one conversation per pair; ParticipantA and ParticipantB
// are always stored in canonical order (ParticipantA < ParticipantB).
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanonicalPair orders two identities lexicographically so that {a, b} and
// {b, a} resolve to the same conversation key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the given identity is part of the conversation.
func (c Conversation) HasParticipant(identity string) bool {
	return c.ParticipantA == identity || c.ParticipantB == identity
}
