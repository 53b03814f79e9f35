package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type routerFixture struct {
	registry *Registry
	router   *DeliveryRouter
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	log := testLogger()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blugeWriter, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = blugeWriter.Close() })

	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	registry := NewRegistry(64)
	router := NewDeliveryRouter(log, registry,
		repositories.NewConversationRepository(db),
		repositories.NewMessageRepository(db, log, lo.ToPtr(50)),
		repositories.NewSearchRepository(blugeWriter, log, 20),
		&moderator, 2000)

	return routerFixture{registry: registry, router: router}
}

func TestDeliveryRouter_Pushes_Once_To_Registered_Recipient(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)
	recipientSink := &countingSink{}
	bystanderSink := &countingSink{}

	// Given the recipient and a bystander are both online
	fx.registry.Register("bob", uuid.New(), recipientSink)
	fx.registry.Register("carol", uuid.New(), bystanderSink)

	// When alice sends a message to bob
	message, err := fx.router.Deliver(context.Background(), domain.SendMessageCommand{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "hi",
	})

	// Then the stored record is returned and bob got exactly one push
	req.NoError(err)
	req.Equal("hi", message.Body)
	req.Len(recipientSink.Events(), 1)
	req.Empty(bystanderSink.Events())

	pushed, ok := recipientSink.Events()[0].(event.NewMessage)
	req.True(ok)
	req.Equal(message.ID, pushed.ID)
	req.Equal("hi", pushed.Body)
}

func TestDeliveryRouter_Offline_Recipient_Still_Stores(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)

	// When alice messages an offline bob
	message, err := fx.router.Deliver(context.Background(), domain.SendMessageCommand{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "are you there?",
	})
	req.NoError(err)

	// Then no push happened but the history holds the message
	messages, _, err := fx.router.History(domain.GetMessagesCommand{
		RequesterID: "bob",
		PeerID:      "alice",
	})
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(message.ID, messages[0].ID)
	req.Equal("are you there?", messages[0].Body)
}

func TestDeliveryRouter_Conversation_Is_Reused_Both_Directions(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)
	ctx := context.Background()

	first, err := fx.router.Deliver(ctx, domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Body: "ping",
	})
	req.NoError(err)

	second, err := fx.router.Deliver(ctx, domain.SendMessageCommand{
		SenderID: "bob", RecipientID: "alice", Body: "pong",
	})
	req.NoError(err)

	req.Equal(first.ConversationID, second.ConversationID)
}

func TestDeliveryRouter_Concurrent_Sends_Share_One_Conversation(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)
	const senders = 16

	conversationIDs := make(chan uuid.UUID, senders)
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			message, err := fx.router.Deliver(context.Background(), domain.SendMessageCommand{
				SenderID:    "alice",
				RecipientID: "bob",
				Body:        fmt.Sprintf("message %d", n),
			})
			if err == nil {
				conversationIDs <- message.ConversationID
			}
		}(i)
	}
	wg.Wait()
	close(conversationIDs)

	unique := make(map[uuid.UUID]struct{})
	total := 0
	for id := range conversationIDs {
		unique[id] = struct{}{}
		total++
	}
	req.Equal(senders, total)
	req.Len(unique, 1)
}

func TestDeliveryRouter_Rejects_Invalid_Commands(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  domain.SendMessageCommand
		want error
	}{
		{
			name: "empty body",
			cmd:  domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Body: "   "},
			want: errors.ErrEmptyBody,
		},
		{
			name: "self message",
			cmd:  domain.SendMessageCommand{SenderID: "alice", RecipientID: "alice", Body: "hi"},
			want: errors.ErrSelfMessage,
		},
		{
			name: "body too long",
			cmd:  domain.SendMessageCommand{SenderID: "alice", RecipientID: "bob", Body: strings.Repeat("x", 2001)},
			want: errors.ErrBodyTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.router.Deliver(ctx, tt.cmd)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDeliveryRouter_Censors_Body_Before_Store_And_Push(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)
	recipientSink := &countingSink{}
	fx.registry.Register("bob", uuid.New(), recipientSink)

	message, err := fx.router.Deliver(context.Background(), domain.SendMessageCommand{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "you idiot",
	})
	req.NoError(err)
	req.Equal("you *****", message.Body)

	req.Len(recipientSink.Events(), 1)
	pushed := recipientSink.Events()[0].(event.NewMessage)
	req.Equal("you *****", pushed.Body)
}

func TestDeliveryRouter_Push_Failure_Is_Not_Propagated(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)

	// Given a recipient whose connection fails every push
	fx.registry.Register("bob", uuid.New(), failingSink{})

	// When alice sends a message
	_, err := fx.router.Deliver(context.Background(), domain.SendMessageCommand{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "hi",
	})

	// Then the call still succeeds: the real-time path is fire-and-forget
	req.NoError(err)
}

func TestDeliveryRouter_No_Push_When_Append_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(64)
	recipientSink := &countingSink{}
	registry.Register("bob", uuid.New(), recipientSink)

	// Given a storage layer that accepts the conversation but loses the write
	conversations := mocks.NewMockIConversationRepository(ctrl)
	conversations.EXPECT().FindOrCreate("alice", "bob").
		Return(domain.Conversation{ID: uuid.New()}, nil)
	messages := mocks.NewMockIMessageRepository(ctrl)
	messages.EXPECT().Append(gomock.Any()).Return(fmt.Errorf("disk full"))

	router := NewDeliveryRouter(testLogger(), registry, conversations, messages,
		mocks.NewMockISearchRepository(ctrl), nil, 2000)

	// When the send hits the failure
	_, err := router.Deliver(context.Background(), domain.SendMessageCommand{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "hi",
	})

	// Then the caller sees the failure and the recipient saw nothing
	req.Error(err)
	req.Empty(recipientSink.Events())
}

func TestDeliveryRouter_History_Empty_For_Unknown_Pair(t *testing.T) {
	req := require.New(t)
	fx := newRouterFixture(t)

	messages, cursor, err := fx.router.History(domain.GetMessagesCommand{
		RequesterID: "alice",
		PeerID:      "stranger",
	})
	req.NoError(err)
	req.Empty(messages)
	req.Nil(cursor)
}

type failingSink struct{}

func (failingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return fmt.Errorf("connection closed")
}
