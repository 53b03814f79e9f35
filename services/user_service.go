package services

import (
	"chat-relay/domain"
	"chat-relay/repositories"
)

type IUserService interface {
	ListContacts(callerID string) ([]domain.User, error)
}

// UserService serves the contact list shown in the client sidebar.
type UserService struct {
	userRepository repositories.IUserRepository
}

func NewUserService(repo repositories.IUserRepository) *UserService {
	return &UserService{userRepository: repo}
}

func (s *UserService) ListContacts(callerID string) ([]domain.User, error) {
	return s.userRepository.ListUsers(callerID)
}
