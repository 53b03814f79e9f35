// Package ws is the websocket transport: one Client per live connection, a
// read pump handling inbound frames and a write pump draining the buffered
// send queue. The Client doubles as the registry-facing event sink.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Envelope is the wire frame: an event name plus its JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// sendMessagePayload is the inbound send_message frame.
type sendMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

// Client is one live connection. Lifecycle: created on upgrade (handshaking),
// Open once the pumps run, Closed after the first Close call. Closed is
// terminal: Consume on a closed client is a no-op, never an error.
type Client struct {
	sessionID uuid.UUID
	identity  string // empty for anonymous connections, which are never registered
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	log       *slog.Logger
	registry  contract.IRegistry
	router    *runtime.DeliveryRouter
	maxFrame  int64
}

func newClient(log *slog.Logger, conn *websocket.Conn, identity string,
	registry contract.IRegistry, router *runtime.DeliveryRouter,
	bufferSize int, maxFrame int64) *Client {
	return &Client{
		sessionID: uuid.New(),
		identity:  identity,
		conn:      conn,
		send:      make(chan []byte, bufferSize),
		done:      make(chan struct{}),
		log:       log,
		registry:  registry,
		router:    router,
		maxFrame:  maxFrame,
	}
}

// SessionID identifies this connection for guarded unregistration.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// Consume implements contract.EventSink: it serializes the event and queues
// it on the send buffer. Best-effort by contract, a full buffer or a closed
// connection drops the event silently.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	if c.closed.Load() {
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: string(e.EventType()), Payload: payload})
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Debug("Send buffer full, dropping event",
			"identity", c.identity, "event", e.EventType())
		return nil
	}
}

// Close transitions the connection to its terminal state exactly once:
// unregister (guarded by session id, so a superseded session cannot evict its
// successor), stop the write pump, close the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.identity != "" {
			c.registry.Unregister(c.identity, c.sessionID)
		}
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump handles inbound frames until the peer disconnects. It blocks and
// must run on the connection's own goroutine; it owns the Close call.
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(c.maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket close", "identity", c.identity, "error", err)
			}
			return
		}
		c.handleFrame(raw)
	}
}

// handleFrame dispatches one inbound envelope. Unknown events are ignored so
// newer clients stay compatible with older servers.
func (c *Client) handleFrame(raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.log.Debug("Invalid frame", "identity", c.identity, "error", err)
		return
	}

	switch envelope.Event {
	case "send_message":
		if c.identity == "" {
			// Anonymous connections may listen but never send.
			return
		}
		var payload sendMessagePayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			c.log.Debug("Invalid send_message payload", "identity", c.identity, "error", err)
			return
		}
		_, err := c.router.Deliver(context.Background(), domain.SendMessageCommand{
			SenderID:    c.identity,
			RecipientID: payload.RecipientID,
			Body:        payload.Body,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			c.log.Warn("Inbound message rejected", "identity", c.identity, "error", err)
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
