package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomchat/domain"
	"roomchat/errors"
)

// MemoryMessageRepository is the in-memory double of the message store.
// It mirrors the durable store's semantics: identifiers and per-room
// non-decreasing timestamps assigned at append, reads ascending.
type MemoryMessageRepository struct {
	mu     sync.Mutex
	rooms  map[string][]domain.Message
	lastAt map[string]time.Time
}

var _ IMessageRepository = (*MemoryMessageRepository)(nil)

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		rooms:  make(map[string][]domain.Message),
		lastAt: make(map[string]time.Time),
	}
}

func (m *MemoryMessageRepository) Append(_ context.Context, roomID, senderID, content string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}

	at := time.Now().UTC()
	if last, ok := m.lastAt[roomID]; ok && at.Before(last) {
		at = last
	}
	m.lastAt[roomID] = at

	message := domain.Message{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}
	m.rooms[roomID] = append(m.rooms[roomID], message)
	return message, nil
}

func (m *MemoryMessageRepository) Range(_ context.Context, roomID string, limit, offset int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit < 0 || offset < 0 {
		return nil, nil
	}
	messages := m.rooms[roomID]
	if offset >= len(messages) {
		return nil, nil
	}
	end := offset + limit
	if end > len(messages) {
		end = len(messages)
	}
	out := make([]domain.Message, end-offset)
	copy(out, messages[offset:end])
	return out, nil
}

// Len reports how many messages a room holds, for test assertions.
func (m *MemoryMessageRepository) Len(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms[roomID])
}
