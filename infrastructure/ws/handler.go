package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roomchat/chat"
	"roomchat/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests and drives the read loop of each
// connection. Errors returned by the core are turned into chat:error
// events here.
type Handler struct {
	hub       *Hub
	service   *chat.Service
	queueSize int
	log       *slog.Logger
}

func NewHandler(hub *Hub, service *chat.Service, queueSize int, log *slog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		service:   service,
		queueSize: queueSize,
		log:       log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := NewSession(uuid.NewString(), conn, h.queueSize, h.log)
	h.hub.Add(session)
	session.Start()

	h.log.Info("Connection established", "connection", session.ID, "remote", r.RemoteAddr)

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Blocks until the connection goes away. Keeping the read loop inside
	// ServeHTTP keeps the request context alive for storage calls.
	h.readLoop(r.Context(), session)
}

func (h *Handler) readLoop(ctx context.Context, session *Session) {
	defer func() {
		h.hub.Remove(session.ID)
		session.Close()
		h.service.Disconnect(session.ID, "client disconnected")
		h.log.Info("Connection closed", "connection", session.ID)
	}()

	for {
		_, raw, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Read failed", "connection", session.ID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.emitError(session.ID, "Invalid message format")
			continue
		}

		h.dispatch(ctx, session.ID, frame)
	}
}

func (h *Handler) dispatch(ctx context.Context, connID string, frame Frame) {
	switch frame.Event {
	case chat.EventJoin:
		payload, err := decode[chat.JoinPayload](frame.Payload)
		if err != nil {
			h.emitError(connID, "Invalid payload")
			return
		}
		if err := h.service.Join(connID, payload); err != nil {
			h.emitError(connID, errors.UserMessage(err))
		}

	case chat.EventSend:
		payload, err := decode[chat.SendPayload](frame.Payload)
		if err != nil {
			h.emitError(connID, "Invalid payload")
			return
		}
		if _, err := h.service.Send(ctx, connID, payload); err != nil {
			h.emitError(connID, errors.UserMessage(err))
		}

	case chat.EventGetHistory:
		payload, err := decode[chat.HistoryRequestPayload](frame.Payload)
		if err != nil {
			h.emitError(connID, "Invalid payload")
			return
		}
		history, err := h.service.History(ctx, payload)
		if err != nil {
			h.emitError(connID, errors.UserMessage(err))
			return
		}
		h.hub.Emit(connID, chat.EventHistory, history)

	case chat.EventLeave:
		payload, err := decode[chat.LeavePayload](frame.Payload)
		if err != nil {
			h.emitError(connID, "Invalid payload")
			return
		}
		if err := h.service.Leave(connID, payload); err != nil {
			h.emitError(connID, errors.UserMessage(err))
		}

	case chat.EventTyping:
		payload, err := decode[chat.TypingPayload](frame.Payload)
		if err != nil {
			return
		}
		h.service.Typing(connID, payload)

	default:
		h.emitError(connID, fmt.Sprintf("Unknown event: %s", frame.Event))
	}
}

func (h *Handler) emitError(connID, message string) {
	h.hub.Emit(connID, chat.EventError, chat.ErrorPayload{Message: message})
}

// decode tolerates an absent payload, validation reports the missing
// fields with better messages than a JSON error would.
func decode[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
