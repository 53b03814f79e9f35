package domain

import "time"

// SendMessageCommand carries one outbound message through the delivery router.
type SendMessageCommand struct {
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
}

// GetMessagesCommand requests the history of the conversation between the
// requester and one peer. Cursor is the opaque pagination token returned by
// the previous page, nil for the most recent page.
type GetMessagesCommand struct {
	RequesterID string
	PeerID      string
	Cursor      *string
}
