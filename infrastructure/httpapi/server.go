// Package httpapi is the REST surface of the relay: signup/login, contact
// list, message history and send, plus full-text search. Everything except
// the auth endpoints sits behind the JWT middleware.
package httpapi

import (
	"chat-relay/auth"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"
)

type Server struct {
	log         *slog.Logger
	authService services.IAuthService
	chatService services.IChatService
	userService services.IUserService
	tokens      *auth.TokenManager
}

func NewServer(log *slog.Logger, authService services.IAuthService,
	chatService services.IChatService, userService services.IUserService,
	tokens *auth.TokenManager) *Server {
	return &Server{
		log:         log,
		authService: authService,
		chatService: chatService,
		userService: userService,
		tokens:      tokens,
	}
}

// Routes mounts every REST endpoint on the given mux. The websocket endpoint
// is mounted separately by the caller since it bypasses the JWT middleware.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.Handle("GET /api/users", AuthMiddleware(s.tokens, http.HandlerFunc(s.handleListUsers)))
	mux.Handle("POST /api/messages/send/{id}", AuthMiddleware(s.tokens, http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("GET /api/messages/search", AuthMiddleware(s.tokens, http.HandlerFunc(s.handleSearch)))
	mux.Handle("GET /api/messages/{id}", AuthMiddleware(s.tokens, http.HandlerFunc(s.handleGetMessages)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
