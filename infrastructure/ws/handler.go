package ws

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/runtime"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to websocket connections and wires each one
// into the registry. A missing or invalid token is not a transport error: the
// connection is accepted but stays anonymous and is never registered.
type Handler struct {
	log        *slog.Logger
	registry   contract.IRegistry
	router     *runtime.DeliveryRouter
	tokens     *auth.TokenManager
	upgrader   websocket.Upgrader
	bufferSize int
	maxFrame   int64
}

func NewHandler(log *slog.Logger, registry contract.IRegistry,
	router *runtime.DeliveryRouter, tokens *auth.TokenManager,
	allowedOrigin string, bufferSize int, maxFrame int64) *Handler {
	return &Handler{
		log:      log,
		registry: registry,
		router:   router,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		bufferSize: bufferSize,
		maxFrame:   maxFrame,
	}
}

// originChecker allows same-origin requests plus the configured frontend
// origin; "*" disables the check for local development.
func originChecker(allowedOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowedOrigin == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowedOrigin
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := h.authenticate(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(h.log, conn, identity, h.registry, h.router, h.bufferSize, h.maxFrame)
	if identity != "" {
		// The buffered send queue holds the first presence broadcast until
		// the write pump drains it. Last handshake wins on duplicates.
		h.registry.Register(identity, client.SessionID(), client)
		h.log.Info("User connected", "identity", identity, "session", client.SessionID())
	} else {
		h.log.Info("Anonymous connection accepted", "remote", r.RemoteAddr)
	}

	go client.writePump()
	client.readPump()
}

// authenticate resolves the identity claimed at handshake time. The token
// travels as a query parameter because browsers cannot set headers on
// websocket upgrades.
func (h *Handler) authenticate(r *http.Request) string {
	token := r.URL.Query().Get("token")
	if token == "" {
		return ""
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.log.Debug("Rejected websocket token", "remote", r.RemoteAddr, "error", err)
		return ""
	}
	return claims.UserID
}
