package httpapi

import (
	"bytes"
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/services"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serverFixture struct {
	mux      *http.ServeMux
	tokens   *auth.TokenManager
	authMock *mocks.MockIAuthService
	chatMock *mocks.MockIChatService
	userMock *mocks.MockIUserRepository
}

func newServerFixture(t *testing.T) serverFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	tokens := auth.NewTokenManager("unit-test-secret", time.Hour)

	authMock := mocks.NewMockIAuthService(ctrl)
	chatMock := mocks.NewMockIChatService(ctrl)
	userMock := mocks.NewMockIUserRepository(ctrl)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(log, authMock, chatMock, services.NewUserService(userMock), tokens)

	mux := http.NewServeMux()
	server.Routes(mux)
	return serverFixture{
		mux:      mux,
		tokens:   tokens,
		authMock: authMock,
		chatMock: chatMock,
		userMock: userMock,
	}
}

func (f serverFixture) bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokens.Generate(userID, []string{"user"})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestServer_Signup(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.authMock.EXPECT().
		Register(gomock.Any()).
		Return(services.Token("signed-token"), domain.User{ID: "alice-id", Username: "alice"}, nil)

	body := bytes.NewBufferString(`{"username":"alice","full_name":"Alice Liddell","gender":"female","password":"ComplexPass123","confirm_password":"ComplexPass123"}`)
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/signup", body))

	req.Equal(http.StatusCreated, recorder.Code)
	var response struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.Equal("signed-token", response.Token)
	req.Equal("alice-id", response.User.ID)
}

func TestServer_Signup_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.authMock.EXPECT().
		Register(gomock.Any()).
		Return(services.Token(""), domain.User{}, errors.ErrUserAlreadyExists)

	body := bytes.NewBufferString(`{"username":"alice","full_name":"Alice","gender":"female","password":"ComplexPass123","confirm_password":"ComplexPass123"}`)
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/signup", body))

	req.Equal(http.StatusConflict, recorder.Code)
}

func TestServer_Login_Invalid_Credentials(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.authMock.EXPECT().
		Login("alice", "wrong").
		Return(services.Token(""), domain.User{}, errors.ErrInvalidCredentials)

	body := bytes.NewBufferString(`{"username":"alice","password":"wrong"}`)
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))

	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestServer_Protected_Routes_Require_Token(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	req.Equal(http.StatusUnauthorized, recorder.Code)

	// A garbage token is rejected the same way
	request := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	request.Header.Set("Authorization", "Bearer not-a-jwt")
	recorder = httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)
	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestServer_ListUsers(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.userMock.EXPECT().
		ListUsers("alice-id").
		Return([]domain.User{{ID: "bob-id", Username: "bob"}}, nil)

	request := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	request.Header.Set("Authorization", fx.bearerFor(t, "alice-id"))
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)
	var contacts []domain.User
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &contacts))
	req.Len(contacts, 1)
	req.Equal("bob", contacts[0].Username)
}

func TestServer_SendMessage(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)
	stored := domain.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       "alice-id",
		RecipientID:    "bob-id",
		Body:           "hi",
		CreatedAt:      time.Now().UTC(),
	}

	fx.chatMock.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx any, cmd domain.SendMessageCommand) (domain.Message, error) {
			// The sender comes from the token, the recipient from the path
			req.Equal("alice-id", cmd.SenderID)
			req.Equal("bob-id", cmd.RecipientID)
			req.Equal("hi", cmd.Body)
			return stored, nil
		})

	body := bytes.NewBufferString(`{"message":"hi"}`)
	request := httptest.NewRequest(http.MethodPost, "/api/messages/send/bob-id", body)
	request.Header.Set("Authorization", fx.bearerFor(t, "alice-id"))
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)

	req.Equal(http.StatusCreated, recorder.Code)
	var response domain.Message
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.Equal(stored.ID, response.ID)
}

func TestServer_SendMessage_Empty_Body(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.chatMock.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, errors.ErrEmptyBody)

	body := bytes.NewBufferString(`{"message":"   "}`)
	request := httptest.NewRequest(http.MethodPost, "/api/messages/send/bob-id", body)
	request.Header.Set("Authorization", fx.bearerFor(t, "alice-id"))
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)

	req.Equal(http.StatusBadRequest, recorder.Code)
}

func TestServer_GetMessages_With_Cursor(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	fx.chatMock.EXPECT().
		GetMessages(gomock.Any()).
		DoAndReturn(func(cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
			req.Equal("alice-id", cmd.RequesterID)
			req.Equal("bob-id", cmd.PeerID)
			req.NotNil(cmd.Cursor)
			req.Equal("opaque-cursor", *cmd.Cursor)
			return nil, nil, nil
		})

	request := httptest.NewRequest(http.MethodGet, "/api/messages/bob-id?cursor=opaque-cursor", nil)
	request.Header.Set("Authorization", fx.bearerFor(t, "alice-id"))
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)
}

func TestServer_Search_Invalid_Offset(t *testing.T) {
	req := require.New(t)
	fx := newServerFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/api/messages/search?q=harbor&offset=minus-one", nil)
	request.Header.Set("Authorization", fx.bearerFor(t, "alice-id"))
	recorder := httptest.NewRecorder()
	fx.mux.ServeHTTP(recorder, request)

	req.Equal(http.StatusBadRequest, recorder.Code)
}
