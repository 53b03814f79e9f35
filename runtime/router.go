package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// DeliveryRouter sequences the durable-write and real-time-notify steps for
// one outbound message. The registry lock is never held here: persistence and
// registry access are independent critical sections, so a stalled storage
// call stalls only the one Deliver invocation.
type DeliveryRouter struct {
	log           *slog.Logger
	registry      contract.IRegistry
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	search        repositories.ISearchRepository
	moderator     *moderation.Moderator
	maxBodyLength int
}

func NewDeliveryRouter(log *slog.Logger, registry contract.IRegistry,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	search repositories.ISearchRepository,
	moderator *moderation.Moderator, maxBodyLength int) *DeliveryRouter {
	return &DeliveryRouter{
		log:           log,
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		search:        search,
		moderator:     moderator,
		maxBodyLength: maxBodyLength,
	}
}

// Deliver persists one message and, if the recipient currently holds a live
// connection, pushes it exactly once. The stored record is returned to the
// caller regardless of whether live delivery happened; a push failure is
// logged and never propagated nor retried.
func (r *DeliveryRouter) Deliver(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	body := strings.TrimSpace(cmd.Body)
	if body == "" {
		return domain.Message{}, errors.ErrEmptyBody
	}
	if r.maxBodyLength > 0 && len([]rune(body)) > r.maxBodyLength {
		return domain.Message{}, errors.ErrBodyTooLong
	}
	if cmd.SenderID == cmd.RecipientID {
		return domain.Message{}, errors.ErrSelfMessage
	}

	body = r.sanitize(cmd.SenderID, body)

	conversation, err := r.conversations.FindOrCreate(cmd.SenderID, cmd.RecipientID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("conversation lookup failed: %w", err)
	}

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       cmd.SenderID,
		RecipientID:    cmd.RecipientID,
		Body:           body,
		CreatedAt:      createdAt,
	}

	// Storage failure is fatal to the call: no push for a message that was
	// not durably written.
	if err := r.messages.Append(message); err != nil {
		return domain.Message{}, fmt.Errorf("message append failed: %w", err)
	}

	// Index failure is not: the durable copy exists, search can lag.
	if err := r.search.Index(message); err != nil {
		r.log.Warn("Failed to index message", "message_id", message.ID, "error", err)
	}

	r.push(ctx, message)
	return message, nil
}

// push performs the at-most-once live delivery. A recipient that disconnects
// between lookup and push is an expected race, not an error.
func (r *DeliveryRouter) push(ctx context.Context, message domain.Message) {
	sink, ok := r.registry.Lookup(message.RecipientID)
	if !ok {
		return
	}
	err := sink.Consume(ctx, event.NewMessage{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		RecipientID:    message.RecipientID,
		Body:           message.Body,
		CreatedAt:      message.CreatedAt,
	})
	if err != nil {
		r.log.Debug("Live delivery skipped, recipient went away",
			"recipient", message.RecipientID, "message_id", message.ID)
	}
}

// sanitize masks censored words. The moderation log line carries the detected
// language so per-language wordlist gaps show up in operation.
func (r *DeliveryRouter) sanitize(senderID, body string) string {
	if r.moderator == nil {
		return body
	}
	sanitized, found := r.moderator.Censor(body)
	if len(found) > 0 {
		info := whatlanggo.Detect(body)
		r.log.Warn("Censored message content",
			"sender", senderID,
			"lang", info.Lang.Iso6391(),
			"words", strings.Join(found, ","))
	}
	return sanitized
}

// History returns one page of the conversation between the requester and the
// given peer, newest first. A missing conversation yields an empty page, the
// same answer a brand-new pair would get.
func (r *DeliveryRouter) History(cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
	conversation, err := r.conversations.GetByPair(cmd.RequesterID, cmd.PeerID)
	if err != nil {
		if goerrors.Is(err, errors.ErrConversationNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return r.messages.GetMessages(conversation.ID, cmd.Cursor)
}
