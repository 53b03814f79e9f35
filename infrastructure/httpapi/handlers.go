package httpapi

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
)

type signupRequest struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Gender          string `json:"gender"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type sendMessageRequest struct {
	Body string `json:"message"`
}

type historyResponse struct {
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := s.authService.Register(auth.RegisterRequest{
		Username:        req.Username,
		FullName:        req.FullName,
		Gender:          req.Gender,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.log.Warn("Signup rejected", "username", req.Username, "error", err)
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: string(token), User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: string(token), User: user})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.ListContacts(CallerID(r))
	if err != nil {
		s.log.Error("Failed to list users", "error", err)
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleSendMessage is the durable send path: persist first, then the router
// performs the best-effort live push. The response is always the stored
// record, whether or not the recipient was online.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := s.chatService.SendMessage(r.Context(), domain.SendMessageCommand{
		SenderID:    CallerID(r),
		RecipientID: r.PathValue("id"),
		Body:        req.Body,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("Message delivery failed", "sender", CallerID(r), "error", err)
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = lo.ToPtr(raw)
	}

	messages, next, err := s.chatService.GetMessages(domain.GetMessagesCommand{
		RequesterID: CallerID(r),
		PeerID:      r.PathValue("id"),
		Cursor:      cursor,
	})
	if err != nil {
		s.log.Error("Failed to load history", "requester", CallerID(r), "error", err)
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Messages: messages, Cursor: next})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = parsed
	}

	hits, total, err := s.chatService.SearchMessages(r.Context(), CallerID(r), query, offset)
	if err != nil {
		s.log.Error("Search failed", "requester", CallerID(r), "error", err)
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"hits": hits, "total": total})
}
