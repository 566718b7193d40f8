// Package ws carries the realtime side of the chat server: one session per
// websocket connection and a hub that fans events out to room groups.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxFrameBytes mirrors the HTTP body cap.
	maxFrameBytes = 1_000_000
)

// Frame is the JSON envelope of every message in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}

// Session owns one websocket connection. All writes go through a buffered
// queue drained by a single writer goroutine, so concurrent broadcasts
// never interleave on the wire.
type Session struct {
	ID string

	conn      *websocket.Conn
	sendQueue chan []byte
	done      chan struct{}
	closed    atomic.Bool
	log       *slog.Logger
}

func NewSession(id string, conn *websocket.Conn, queueSize int, log *slog.Logger) *Session {
	return &Session{
		ID:        id,
		conn:      conn,
		sendQueue: make(chan []byte, queueSize),
		done:      make(chan struct{}),
		log:       log,
	}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// TrySend queues a frame without blocking. A session that cannot keep up
// is closed, slow consumers must not stall the rest of the room.
func (s *Session) TrySend(msg []byte) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.sendQueue <- msg:
		return true
	default:
		s.log.Warn("Send queue overflow, dropping connection", "connection", s.ID)
		s.CloseWithReason(websocket.CloseInternalServerErr, "backpressure overflow")
		return false
	}
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	close(s.done)

	if s.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = s.conn.Close()
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg := <-s.sendQueue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Warn("Write failed", "connection", s.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
