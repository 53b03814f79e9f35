//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
)

type IAuthService interface {
	Register(req auth.RegisterRequest) (Token, domain.User, error)
	Login(username, password string) (Token, domain.User, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(req auth.RegisterRequest) (Token, domain.User, error) {
	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(req); err != nil {
		return "", domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer so the repository never sees a
	// plain password.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(req.Username, req.FullName, req.Gender, hashedPassword)
	if err != nil {
		return "", domain.User{}, err // propagates ErrUserAlreadyExists
	}

	token, err := s.tokens.Generate(userID, []string{"user"})
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}

	user, err := s.userRepository.GetUserByUsername(req.Username)
	if err != nil {
		return "", domain.User{}, err
	}
	return Token(token), user, nil
}

func (s *AuthService) Login(username, password string) (Token, domain.User, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return Token(token), user, nil
}
