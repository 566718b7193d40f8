// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once the store assigns their identity.
package domain

import (
	"github.com/google/uuid"
	"time"
)

// Message represents an immutable chat event persisted for a room.
// ID and CreatedAt are assigned by the message store at append time;
// Content is already sanitized when a message reaches the store.
type Message struct {
	ID        uuid.UUID // unique identifier, time-ordered
	RoomID    string
	SenderID  string
	Content   string
	CreatedAt time.Time
}
