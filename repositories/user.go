//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, fullName, gender, hashedPassword string) (string, error)
	GetUserByUsername(username string) (domain.User, error)
	ListUsers(excludeID string) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

func userKey(username string) []byte {
	return []byte("user:" + strings.ToLower(username))
}

// CreateUser persists a new account and returns the generated identity.
// Uniqueness is enforced inside the transaction: the key is checked and set
// atomically, so two concurrent signups for one username cannot both succeed.
func (u UserRepository) CreateUser(username, fullName, gender, hashedPassword string) (string, error) {
	user := domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		FullName:     fullName,
		Gender:       gender,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(toDiskUser(user))
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})

	return user.ID, err
}

// GetUserByUsername retrieves one account, password hash included.
func (u UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var stored diskUser

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})

	if err != nil {
		return domain.User{}, err
	}
	return toUser(stored), nil
}

// ListUsers returns every account except the given identity, used to build the
// caller's contact list.
func (u UserRepository) ListUsers(excludeID string) ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		prefix := []byte("user:")
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var stored diskUser
				if err := json.Unmarshal(val, &stored); err != nil {
					return err
				}
				if stored.ID != excludeID {
					users = append(users, toUser(stored))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}

// diskUser is the stored representation of a user; unlike domain.User it
// serializes the password hash.
type diskUser struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name"`
	Gender       string   `json:"gender"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles"`
	CreatedAt    int64    `json:"created_at"`
}

func toDiskUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Gender:       user.Gender,
		PasswordHash: user.PasswordHash,
		Roles:        user.Roles,
		CreatedAt:    user.CreatedAt.Unix(),
	}
}

func toUser(stored diskUser) domain.User {
	return domain.User{
		ID:           stored.ID,
		Username:     stored.Username,
		FullName:     stored.FullName,
		Gender:       stored.Gender,
		PasswordHash: stored.PasswordHash,
		Roles:        stored.Roles,
		CreatedAt:    time.Unix(stored.CreatedAt, 0).UTC(),
	}
}
