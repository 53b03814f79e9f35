//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	FindOrCreate(a, b string) (domain.Conversation, error)
	GetByPair(a, b string) (domain.Conversation, error)
}

type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) ConversationRepository {
	return ConversationRepository{db: db}
}

// conversationKey derives the storage key from the canonical participant pair,
// so {a, b} and {b, a} always address the same entry.
func conversationKey(a, b string) []byte {
	first, second := domain.CanonicalPair(a, b)
	return []byte(fmt.Sprintf("conv:%s:%s", first, second))
}

// FindOrCreate returns the conversation for the unordered pair {a, b},
// creating it on first use. The read-or-write runs inside a single Badger
// transaction and retries on commit conflict, so two concurrent calls for the
// same pair converge on exactly one conversation.
func (c ConversationRepository) FindOrCreate(a, b string) (domain.Conversation, error) {
	key := conversationKey(a, b)
	first, second := domain.CanonicalPair(a, b)

	for {
		var conv domain.Conversation
		err := c.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err == nil {
				return item.Value(func(val []byte) error {
					return json.Unmarshal(val, &conv)
				})
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			conv = domain.Conversation{
				ID:           uuid.New(),
				ParticipantA: first,
				ParticipantB: second,
				CreatedAt:    time.Now().UTC(),
			}
			data, err := json.Marshal(conv)
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			return txn.Set(key, data)
		})

		if errors.Is(err, badger.ErrConflict) {
			// Another call created the conversation first, retry and read it.
			continue
		}
		if err != nil {
			return domain.Conversation{}, err
		}
		return conv, nil
	}
}

// GetByPair is the read-only variant, used by the history path.
func (c ConversationRepository) GetByPair(a, b string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(a, b))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})
	return conv, err
}
