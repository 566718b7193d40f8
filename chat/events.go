package chat

import (
	"roomchat/domain"
)

// Event names of the realtime protocol. Inbound names are sent by clients,
// outbound names are emitted by the server.
const (
	EventJoin       = "chat:join"
	EventSend       = "chat:send"
	EventGetHistory = "chat:getHistory"
	EventLeave      = "chat:leave"
	EventTyping     = "chat:typing"

	EventJoined           = "chat:joined"
	EventUserJoined       = "chat:userJoined"
	EventReceive          = "chat:receive"
	EventHistory          = "chat:history"
	EventLeft             = "chat:left"
	EventUserLeft         = "chat:userLeft"
	EventUserTyping       = "chat:userTyping"
	EventUserDisconnected = "chat:userDisconnected"
	EventError            = "chat:error"
)

// Inbound payloads keep their fields untyped. Clients send whatever they
// want; the validation package decides what passes.

type JoinPayload struct {
	RoomID any `json:"roomId"`
	UserID any `json:"userId"`
}

type SendPayload struct {
	RoomID  any `json:"roomId"`
	UserID  any `json:"userId"`
	Message any `json:"message"`
}

type HistoryRequestPayload struct {
	RoomID any `json:"roomId"`
	Limit  any `json:"limit"`
	Offset any `json:"offset"`
}

type LeavePayload struct {
	RoomID any `json:"roomId"`
	UserID any `json:"userId"`
}

type TypingPayload struct {
	RoomID   any `json:"roomId"`
	UserID   any `json:"userId"`
	IsTyping any `json:"isTyping"`
}

// ErrorPayload is the body of every chat:error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// PresencePayload is shared by the joined, userJoined, left and userLeft
// events, which all carry the same two fields.
type PresencePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type TypingNoticePayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type DisconnectedPayload struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
	Reason       string `json:"reason,omitempty"`
}

// MessagePayload is the wire shape of a persisted message. ConnectionID
// identifies the originating connection on live broadcasts and is empty on
// history replies and HTTP submissions.
type MessagePayload struct {
	ID           string `json:"id"`
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId"`
	Message      string `json:"message"`
	Timestamp    int64  `json:"timestamp"`
	ConnectionID string `json:"connectionId,omitempty"`
}

type HistoryPayload struct {
	RoomID   string           `json:"roomId"`
	Messages []MessagePayload `json:"messages"`
	Count    int              `json:"count"`
}

func NewMessagePayload(message domain.Message, connID string) MessagePayload {
	return MessagePayload{
		ID:           message.ID.String(),
		RoomID:       message.RoomID,
		UserID:       message.SenderID,
		Message:      message.Content,
		Timestamp:    message.CreatedAt.UnixMilli(),
		ConnectionID: connID,
	}
}
