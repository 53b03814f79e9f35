package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	Password      string `env:"CHAT_PASSWORD,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type contact struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles login, the websocket lifecycle and the interactive loop.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(config)
	if err != nil {
		return exitRuntime, err
	}

	wsURL := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", wsURL.String(), err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	color.Green.Printf(">>> Connected to %s as %s (Ctrl+C to quit)\n",
		config.ServerAddress, config.Username)
	color.Gray.Println("Commands: /users | @<user_id> <message>")

	go receiveLoop(conn)

	contacts := newContactDirectory(config, token)
	inputLoop(ctx, conn, contacts)

	return exitOK, nil
}

func login(config Config) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": config.Username,
		"password": config.Password,
	})
	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/auth/login", config.ServerAddress),
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}

// receiveLoop prints every pushed event until the connection drops.
func receiveLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			color.Red.Println("Connection lost")
			return
		}

		var evt envelope
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}

		switch evt.Event {
		case "presence":
			var payload struct {
				Online []string `json:"online"`
			}
			if err := json.Unmarshal(evt.Payload, &payload); err == nil {
				color.Yellow.Printf("[presence] %d online: %s\n",
					len(payload.Online), strings.Join(payload.Online, ", "))
			}
		case "new_message":
			var payload struct {
				SenderID  string    `json:"sender_id"`
				Body      string    `json:"body"`
				CreatedAt time.Time `json:"created_at"`
			}
			if err := json.Unmarshal(evt.Payload, &payload); err == nil {
				color.Cyan.Printf("[%s] %s: %s\n",
					payload.CreatedAt.Format("15:04:05"), payload.SenderID, payload.Body)
			}
		}
	}
}

// contactDirectory fetches and renders the contact list on demand.
type contactDirectory struct {
	config Config
	token  string
}

func newContactDirectory(config Config, token string) *contactDirectory {
	return &contactDirectory{config: config, token: token}
}

func (d *contactDirectory) render() error {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("http://%s/api/users", d.config.ServerAddress), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var contacts []contact
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Full Name"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, c := range contacts {
		table.Append([]string{c.ID, c.Username, c.FullName})
	}
	table.Render()
	return nil
}

// inputLoop reads stdin commands until the context is canceled or stdin closes.
func inputLoop(ctx context.Context, conn *websocket.Conn, contacts *contactDirectory) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/users":
			if err := contacts.render(); err != nil {
				color.Red.Printf("Failed to fetch users: %v\n", err)
			}
		case strings.HasPrefix(line, "@"):
			sendMessage(conn, line)
		default:
			color.Gray.Println("Usage: /users | @<user_id> <message>")
		}
	}
}

func sendMessage(conn *websocket.Conn, line string) {
	parts := strings.SplitN(strings.TrimPrefix(line, "@"), " ", 2)
	if len(parts) != 2 {
		color.Gray.Println("Usage: @<user_id> <message>")
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"recipient_id": parts[0],
		"body":         parts[1],
	})
	frame, _ := json.Marshal(envelope{Event: "send_message", Payload: payload})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		color.Red.Printf("Send failed: %v\n", err)
	}
}
