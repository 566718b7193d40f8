//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"roomchat/domain"
	"roomchat/errors"
)

// seqBandwidth is the lease size of the per-room badger sequences. Numbers
// left unused on crash become gaps in the key space, which is harmless.
const seqBandwidth = 128

type IMessageRepository interface {
	Append(ctx context.Context, roomID, senderID, content string) (domain.Message, error)
	Range(ctx context.Context, roomID string, limit, offset int) ([]domain.Message, error)
}

// MessageRepository persists messages in BadgerDB.
// The key is formatted as "msg:{escaped_room}:{seq_padded}" to:
//  1. Ensure append ordering per room via a persistent badger sequence,
//     zero-padded to 20 digits so lexicographic order matches numeric order.
//  2. Keep rooms apart even when their identifiers contain the key
//     separator, by URL-escaping the room part.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu     sync.Mutex
	seqs   map[string]*badger.Sequence
	lastAt map[string]time.Time
}

var _ IMessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		log:    log,
		seqs:   make(map[string]*badger.Sequence),
		lastAt: make(map[string]time.Time),
	}
}

// DiskMessage is the stored record layout. Timestamps are UnixNano so
// records sort and compare without timezone parsing.
type DiskMessage struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Author  string `json:"author"`
	Content string `json:"content"`
	At      int64  `json:"at"`
	Seq     uint64 `json:"seq"`
}

// Append durably persists a message, assigning its identifier and creation
// timestamp. Timestamps are clamped per room so they never decrease along
// append order even when the wall clock steps backwards.
func (m *MessageRepository) Append(_ context.Context, roomID, senderID, content string) (domain.Message, error) {
	// Sequence and timestamp are claimed under one short lock so their
	// order agrees; the value write below runs outside it.
	m.mu.Lock()
	seq, err := m.seqFor(roomID)
	if err != nil {
		m.mu.Unlock()
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}
	n, err := seq.Next()
	if err != nil {
		m.mu.Unlock()
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}
	at := time.Now().UTC()
	if last, ok := m.lastAt[roomID]; ok && at.Before(last) {
		at = last
	}
	m.lastAt[roomID] = at
	m.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}

	record := DiskMessage{
		ID:      id.String(),
		Room:    roomID,
		Author:  senderID,
		Content: content,
		At:      at.UnixNano(),
		Seq:     n,
	}
	value, err := json.Marshal(record)
	if err != nil {
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}

	key := fmt.Sprintf("%s%020d", messagePrefix(roomID), n)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return domain.Message{}, errors.Storage("Failed to send message", err)
	}

	return domain.Message{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}, nil
}

// Range retrieves up to limit messages of a room in ascending creation
// order, skipping the offset earliest. Thanks to the padded sequence in the
// key, a forward prefix scan is already sorted.
func (m *MessageRepository) Range(_ context.Context, roomID string, limit, offset int) ([]domain.Message, error) {
	prefix := []byte(messagePrefix(roomID))
	var records []DiskMessage

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		skipped := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(records) == limit {
				break
			}
			var record DiskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("Failed to retrieve message history", err)
	}

	messages := make([]domain.Message, 0, len(records))
	for _, record := range records {
		message, err := toDomain(record)
		if err != nil {
			return nil, errors.Storage("Failed to retrieve message history", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Close releases the per-room sequence leases so unused numbers return to
// the store on clean shutdown.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, seq := range m.seqs {
		if err := seq.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.seqs = make(map[string]*badger.Sequence)
	return firstErr
}

// seqFor returns the room's persistent sequence, creating it on first use.
// Callers hold mu.
func (m *MessageRepository) seqFor(roomID string) (*badger.Sequence, error) {
	if seq, ok := m.seqs[roomID]; ok {
		return seq, nil
	}
	seq, err := m.db.GetSequence([]byte("seq:"+url.QueryEscape(roomID)), seqBandwidth)
	if err != nil {
		return nil, err
	}
	m.seqs[roomID] = seq
	return seq, nil
}

func messagePrefix(roomID string) string {
	return "msg:" + url.QueryEscape(roomID) + ":"
}

func toDomain(record DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		RoomID:    record.Room,
		SenderID:  record.Author,
		Content:   record.Content,
		CreatedAt: time.Unix(0, record.At).UTC(),
	}, nil
}
