package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSearchFixture(t *testing.T, pageSize int) *SearchRepository {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewSearchRepository(writer, slog.Default(), pageSize)
}

func indexedMessage(sender, recipient, body string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
}

func Test_Search_Finds_Indexed_Message(t *testing.T) {
	req := require.New(t)
	repository := newSearchFixture(t, 10)
	message := indexedMessage("alice", "bob", "let us meet at the harbor tomorrow")
	req.NoError(repository.Index(message))

	hits, total, err := repository.SearchPaginated(context.Background(), "harbor", "alice", 0)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal(message.ID, hits[0].MessageID)
	req.Equal(message.ConversationID, hits[0].ConversationID)
	req.Equal("alice", hits[0].SenderID)
	req.Equal("bob", hits[0].RecipientID)
	req.Equal(message.Body, hits[0].Body)
}

func Test_Search_Restricted_To_Participants(t *testing.T) {
	req := require.New(t)
	repository := newSearchFixture(t, 10)
	req.NoError(repository.Index(indexedMessage("alice", "bob", "the harbor plan")))

	// Both participants can find the message
	for _, identity := range []string{"alice", "bob"} {
		hits, _, err := repository.SearchPaginated(context.Background(), "harbor", identity, 0)
		req.NoError(err)
		req.Len(hits, 1)
	}

	// A third party cannot
	hits, total, err := repository.SearchPaginated(context.Background(), "harbor", "carol", 0)
	req.NoError(err)
	req.Empty(hits)
	req.Equal(uint64(0), total)
}

func Test_Search_Blank_Query_Returns_Nothing(t *testing.T) {
	req := require.New(t)
	repository := newSearchFixture(t, 10)
	req.NoError(repository.Index(indexedMessage("alice", "bob", "anything")))

	hits, total, err := repository.SearchPaginated(context.Background(), "   ", "alice", 0)
	req.NoError(err)
	req.Empty(hits)
	req.Zero(total)
}

func Test_Search_Pagination_Offset(t *testing.T) {
	req := require.New(t)
	repository := newSearchFixture(t, 2)
	for i := 0; i < 5; i++ {
		req.NoError(repository.Index(indexedMessage("alice", "bob", "rendezvous at the harbor")))
	}

	firstPage, total, err := repository.SearchPaginated(context.Background(), "harbor", "alice", 0)
	req.NoError(err)
	req.Equal(uint64(5), total)
	req.Len(firstPage, 2)

	lastPage, total, err := repository.SearchPaginated(context.Background(), "harbor", "alice", 4)
	req.NoError(err)
	req.Equal(uint64(5), total)
	req.Len(lastPage, 1)
}

func Test_Index_Upserts_By_Message_ID(t *testing.T) {
	req := require.New(t)
	repository := newSearchFixture(t, 10)
	message := indexedMessage("alice", "bob", "draft body with harbor")
	req.NoError(repository.Index(message))

	// Re-indexing the same ID replaces the document instead of duplicating it
	message.Body = "final body with harbor"
	req.NoError(repository.Index(message))

	hits, total, err := repository.SearchPaginated(context.Background(), "harbor", "alice", 0)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal("final body with harbor", hits[0].Body)
}
