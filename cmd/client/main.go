// Command client is a terminal chat client. It joins one room over the
// websocket endpoint, prints everything the room broadcasts and sends each
// stdin line as a message. Slash commands: /join <room> switches rooms,
// /leave exits the current room, /typing signals a typing notice, /history
// fetches the recent room log, /quit ends the session.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"roomchat/chat"
	"roomchat/infrastructure/ws"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// historyWindow is how many messages /history asks for.
const historyWindow = 50

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	RoomID        string `env:"CHAT_ROOM_ID,default=general"`
	UserID        string `env:"CHAT_USER_ID"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run connects to the configured server and drives the send and receive
// loops until one of them ends the session.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.UserID == "" {
		config.UserID = "guest-" + uuid.NewString()[:8]
	}

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish the websocket connection.
	endpoint := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	client := &wsClient{conn: conn, user: config.UserID, room: config.RoomID}

	// 4. Join the configured room.
	err = client.send(chat.EventJoin, chat.JoinPayload{RoomID: config.RoomID, UserID: config.UserID})
	if err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	color.Green.Printf(">>> Connected to %s, room %q as %q (Ctrl+C or /quit to end, /join /leave /typing /history)\n",
		config.ServerAddress, config.RoomID, config.UserID)

	// 5. Reception and input loops run until one of them ends the session.
	errChan := make(chan error, 1)
	quit := make(chan struct{})

	go listen(conn, errChan)
	go readInput(client, quit)

	select {
	case <-ctx.Done():
		fmt.Println()
	case <-quit:
	case err := <-errChan:
		if ctx.Err() == nil {
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		return exitOK, nil
	}

	// Best effort goodbye. The server also cleans up when the socket drops.
	if room := client.currentRoom(); room != "" {
		_ = client.send(chat.EventLeave, chat.LeavePayload{RoomID: room, UserID: config.UserID})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	return exitOK, nil
}

// wsClient serializes frame writes, the connection allows a single
// concurrent writer. It also tracks the room the user currently sits in,
// /join and /leave move it.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
	user string
	room string
}

func (c *wsClient) send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ws.Frame{Event: event, Payload: raw})
}

func (c *wsClient) setRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
}

func (c *wsClient) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// listen renders every incoming frame until the connection breaks.
func listen(conn *websocket.Conn, errChan chan<- error) {
	for {
		var frame ws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			errChan <- err
			return
		}
		render(frame)
	}
}

// readInput forwards stdin lines as chat messages and handles the slash
// commands. Closing quit ends the session.
func readInput(client *wsClient, quit chan<- struct{}) {
	defer close(quit)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/join"):
			room := strings.TrimSpace(strings.TrimPrefix(line, "/join"))
			if room == "" {
				color.Red.Println("!!! usage: /join <room>")
				continue
			}
			if current := client.currentRoom(); current != "" {
				if client.send(chat.EventLeave, chat.LeavePayload{RoomID: current, UserID: client.user}) != nil {
					return
				}
			}
			if client.send(chat.EventJoin, chat.JoinPayload{RoomID: room, UserID: client.user}) != nil {
				return
			}
			client.setRoom(room)
		case line == "/leave":
			room := client.currentRoom()
			if room == "" {
				color.Red.Println("!!! not in a room, /join <room> first")
				continue
			}
			if client.send(chat.EventLeave, chat.LeavePayload{RoomID: room, UserID: client.user}) != nil {
				return
			}
			client.setRoom("")
		case line == "/typing":
			room := client.currentRoom()
			if room == "" {
				color.Red.Println("!!! not in a room, /join <room> first")
				continue
			}
			err := client.send(chat.EventTyping, chat.TypingPayload{
				RoomID:   room,
				UserID:   client.user,
				IsTyping: true,
			})
			if err != nil {
				return
			}
		case line == "/history":
			room := client.currentRoom()
			if room == "" {
				color.Red.Println("!!! not in a room, /join <room> first")
				continue
			}
			err := client.send(chat.EventGetHistory, chat.HistoryRequestPayload{
				RoomID: room,
				Limit:  historyWindow,
			})
			if err != nil {
				return
			}
		default:
			room := client.currentRoom()
			if room == "" {
				color.Red.Println("!!! not in a room, /join <room> first")
				continue
			}
			err := client.send(chat.EventSend, chat.SendPayload{
				RoomID:  room,
				UserID:  client.user,
				Message: line,
			})
			if err != nil {
				return
			}
		}
	}
}

func render(frame ws.Frame) {
	switch frame.Event {
	case chat.EventReceive:
		var message chat.MessagePayload
		if json.Unmarshal(frame.Payload, &message) != nil {
			return
		}
		fmt.Printf("[%s] %s %s\n",
			time.UnixMilli(message.Timestamp).Local().Format(time.TimeOnly),
			color.Cyan.Sprintf("%s:", message.UserID),
			message.Message,
		)
	case chat.EventHistory:
		var history chat.HistoryPayload
		if json.Unmarshal(frame.Payload, &history) != nil {
			return
		}
		renderHistory(history)
	case chat.EventJoined:
		var presence chat.PresencePayload
		if json.Unmarshal(frame.Payload, &presence) != nil {
			return
		}
		color.Green.Printf("--- you joined %s\n", presence.RoomID)
	case chat.EventUserJoined:
		var presence chat.PresencePayload
		if json.Unmarshal(frame.Payload, &presence) != nil {
			return
		}
		color.Green.Printf("--- %s joined %s\n", presence.UserID, presence.RoomID)
	case chat.EventLeft:
		var presence chat.PresencePayload
		if json.Unmarshal(frame.Payload, &presence) != nil {
			return
		}
		color.Yellow.Printf("--- you left %s\n", presence.RoomID)
	case chat.EventUserLeft:
		var presence chat.PresencePayload
		if json.Unmarshal(frame.Payload, &presence) != nil {
			return
		}
		color.Yellow.Printf("--- %s left %s\n", presence.UserID, presence.RoomID)
	case chat.EventUserTyping:
		var notice chat.TypingNoticePayload
		if json.Unmarshal(frame.Payload, &notice) != nil {
			return
		}
		if notice.IsTyping {
			color.Magenta.Printf("... %s is typing\n", notice.UserID)
		}
	case chat.EventUserDisconnected:
		var gone chat.DisconnectedPayload
		if json.Unmarshal(frame.Payload, &gone) != nil {
			return
		}
		color.Yellow.Printf("--- a connection dropped from %s (%s)\n", gone.RoomID, gone.Reason)
	case chat.EventError:
		var failure chat.ErrorPayload
		if json.Unmarshal(frame.Payload, &failure) != nil {
			return
		}
		color.Red.Printf("!!! %s\n", failure.Message)
	}
}

// renderHistory prints the room log oldest first, the order the server
// returns it in.
func renderHistory(history chat.HistoryPayload) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Author", "Message"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, message := range history.Messages {
		table.Append([]string{
			time.UnixMilli(message.Timestamp).Local().Format(time.TimeOnly),
			message.UserID,
			message.Message,
		})
	}

	table.Render()
	color.Cyan.Printf("%d message(s) in %s\n", history.Count, history.RoomID)
}
