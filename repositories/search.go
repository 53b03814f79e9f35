//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/search"
	"github.com/google/uuid"
)

type ISearchRepository interface {
	Index(message domain.Message) error
	SearchPaginated(ctx context.Context, query, identity string, offset int) ([]SearchHit, uint64, error)
}

// SearchRepository maintains a full-text index over stored messages.
// Indexing is best-effort by contract: the durable copy lives in Badger and
// the index can always be rebuilt from it.
type SearchRepository struct {
	writer   *bluge.Writer
	log      *slog.Logger
	pageSize int
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger, pageSize int) *SearchRepository {
	return &SearchRepository{writer: writer, log: log, pageSize: pageSize}
}

// SearchHit is one match returned to the caller, rehydrated from stored fields.
type SearchHit struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Index upserts one message document keyed by its message ID.
func (s *SearchRepository) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField("recipient", message.RecipientID).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", message.ConversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("at", strconv.FormatInt(message.CreatedAt.UnixNano(), 10)).StoreValue())

	return s.writer.Update(doc.ID(), doc)
}

// SearchPaginated runs a match query over the message bodies visible to the
// given identity (messages it sent or received), newest-scored first.
func (s *SearchRepository) SearchPaginated(ctx context.Context, query, identity string, offset int) ([]SearchHit, uint64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, nil
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	// Visibility filter: the caller must be a participant of the message.
	participant := bluge.NewBooleanQuery()
	participant.AddShould(bluge.NewTermQuery(identity).SetField("sender"))
	participant.AddShould(bluge.NewTermQuery(identity).SetField("recipient"))
	participant.SetMinShould(1)

	q := bluge.NewBooleanQuery()
	q.AddMust(bluge.NewMatchQuery(query).SetField("body"))
	q.AddMust(participant)

	request := bluge.NewTopNSearch(s.pageSize, q).
		SetFrom(offset).
		WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var hits []SearchHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit, visitErr := s.toSearchHit(match)
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}

	return hits, iterator.Aggregations().Count(), nil
}

func (s *SearchRepository) toSearchHit(match *search.DocumentMatch) (SearchHit, error) {
	var hit SearchHit
	var visitErr error
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case "_id":
			hit.MessageID, visitErr = uuid.Parse(string(value))
		case "conversation":
			hit.ConversationID, visitErr = uuid.Parse(string(value))
		case "sender":
			hit.SenderID = string(value)
		case "recipient":
			hit.RecipientID = string(value)
		case "body":
			hit.Body = string(value)
		case "at":
			nanos, parseErr := strconv.ParseInt(string(value), 10, 64)
			if parseErr != nil {
				visitErr = parseErr
				return false
			}
			hit.CreatedAt = time.Unix(0, nanos).UTC()
		}
		return visitErr == nil
	})
	if err != nil {
		return SearchHit{}, err
	}
	return hit, visitErr
}
