//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Append(message domain.Message) error
	GetMessages(conversationID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored representation of a message.
type diskMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Body           string `json:"body"`
	At             int64  `json:"at"`
}

// Append persists a message in BadgerDB.
// The key is formatted as "msg:{conversation_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) Append(message domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.ConversationID,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// GetMessages retrieves messages for a conversation using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages are naturally sorted by time;
// the scan walks newest to oldest and stops once limitMessages is reached. The
// returned cursor is the key suffix of the oldest message of the page.
func (m MessageRepository) GetMessages(conversationID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp so the reverse iterator
			// lands on the newest message of the conversation.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, value)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, raw := range rawMessages {
		var stored diskMessage
		if err = json.Unmarshal(raw, &stored); err != nil {
			return nil, nil, err
		}
		message, err := toMessage(stored)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, lo.ToPtr(lastKey), nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:             message.ID.String(),
		ConversationID: message.ConversationID.String(),
		SenderID:       message.SenderID,
		RecipientID:    message.RecipientID,
		Body:           message.Body,
		At:             message.CreatedAt.UnixNano(),
	}
}

func toMessage(stored diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	parsedConversation, err := uuid.Parse(stored.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		ConversationID: parsedConversation,
		SenderID:       stored.SenderID,
		RecipientID:    stored.RecipientID,
		Body:           stored.Body,
		CreatedAt:      time.Unix(0, stored.At).UTC(),
	}, nil
}
