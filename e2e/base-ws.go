package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"roomchat/chat"
	"roomchat/infrastructure/httpapi"
	"roomchat/infrastructure/ws"
	"roomchat/ratelimit"
	"roomchat/repositories"
)

// BaseChatSuite targets a chat server and gives scenarios typed websocket
// helpers. Without SERVER_ADDR it assembles the whole stack in-process, so
// the suite runs hermetically on a laptop and against a deployment in CI.
type BaseChatSuite struct {
	suite.Suite
	Config Config

	server *httptest.Server
	store  *repositories.MessageRepository
	db     *badger.DB
}

// SetupSuite loads the environment configuration before running tests.
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.startLocalServer()
	}
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
	if s.db != nil {
		s.Require().NoError(s.db.Close())
	}
}

// startLocalServer wires the production composition with storage under a
// per-run temporary directory. Rate limits are set high, throttling has its
// own tests.
func (s *BaseChatSuite) startLocalServer() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	s.Require().NoError(err)
	s.db = db
	s.store = repositories.NewMessageRepository(db, log)

	registry := chat.NewRegistry()
	limiter := ratelimit.New(1000, time.Minute)
	hub := ws.NewHub(log)
	service := chat.NewService(registry, s.store, limiter, hub, nil, log)

	handler := httpapi.NewHandler(service, log)
	router := httpapi.NewRouter(handler, ws.NewHandler(hub, service, 64, log), httpapi.RouterOptions{
		MaxBodyBytes:  1_000_000,
		RatePerMinute: 10_000,
	}, log)

	s.server = httptest.NewServer(router)
}

// BaseURL is the HTTP root of the server under test.
func (s *BaseChatSuite) BaseURL() string {
	if s.server != nil {
		return s.server.URL
	}
	return "http://" + s.Config.ServerAddr
}

// Dial opens a websocket to the server, printing a colorized header for the
// connection step in logs.
func (s *BaseChatSuite) Dial(name string) *websocket.Conn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	endpoint := "ws" + strings.TrimPrefix(s.BaseURL(), "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	s.Require().NoError(err, "Failed to connect to chat server at "+endpoint)
	return conn
}

// SendFrame marshals and writes one protocol frame.
func (s *BaseChatSuite) SendFrame(conn *websocket.Conn, event string, payload any) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(ws.Frame{Event: event, Payload: raw}))
}

// ReadEvent reads frames until one matches the wanted event. Frames for
// other events are dropped, scenarios assert only on what they wait for. An
// unexpected chat:error fails the test immediately with the server's message.
func (s *BaseChatSuite) ReadEvent(conn *websocket.Conn, event string) json.RawMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var frame ws.Frame
		s.Require().NoError(conn.ReadJSON(&frame), "waiting for %s", event)

		if s.Config.DebugFrames {
			s.T().Logf("FRAME %s: %s", frame.Event, string(frame.Payload))
		}
		if frame.Event == chat.EventError && event != chat.EventError {
			var failure chat.ErrorPayload
			_ = json.Unmarshal(frame.Payload, &failure)
			s.FailNowf("Server replied with an error", "waiting for %s: %s", event, failure.Message)
		}
		if frame.Event == event {
			return frame.Payload
		}
	}
}

// payloadAs decodes a frame payload into the given wire type.
func payloadAs[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
