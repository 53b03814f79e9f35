//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
)

type IChatService interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	GetMessages(cmd domain.GetMessagesCommand) ([]domain.Message, *string, error)
	SearchMessages(ctx context.Context, identity, query string, offset int) ([]repositories.SearchHit, uint64, error)
}

// IDeliveryRouter is the slice of the routing layer the service needs: send
// one message, read one page of history.
type IDeliveryRouter interface {
	Deliver(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(cmd domain.GetMessagesCommand) ([]domain.Message, *string, error)
}

type ChatService struct {
	router IDeliveryRouter
	search repositories.ISearchRepository
}

func NewChatService(router IDeliveryRouter, search repositories.ISearchRepository) *ChatService {
	return &ChatService{router: router, search: search}
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.router.Deliver(ctx, cmd)
}

func (s *ChatService) GetMessages(cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
	return s.router.History(cmd)
}

func (s *ChatService) SearchMessages(ctx context.Context, identity, query string, offset int) ([]repositories.SearchHit, uint64, error) {
	return s.search.SearchPaginated(ctx, query, identity, offset)
}
