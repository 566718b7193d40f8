package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_MessageHistory_Performance(t *testing.T) {
	if testing.Short() {
		t.Skip("seeding one million messages, skipped in short mode")
	}

	req := require.New(t)
	path := t.TempDir()
	// Reduced to 16 MB for testing (avoid 2 GB of preallocated storage)
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	defer db.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewMessageRepository(db, log)

	totalMessages := 1_000_000
	targetRoom := "room-42"
	limit := 50

	// --- Phase 1: SEEDING 1 MILLION MESSAGES ---
	// Records are written raw with the repository's real key layout, so the
	// batch skips the sequence lease but reads go through the production path.
	fmt.Printf("Starting seeding of %d messages...\n", totalMessages)
	startSeed := time.Now()
	wb := db.NewWriteBatch()

	for i := 0; i < totalMessages; i++ {
		room := fmt.Sprintf("room-%d", i%100) // Distribution over 100 rooms
		seq := uint64(i / 100)
		at := time.Now().Add(time.Duration(i) * time.Nanosecond)

		record := DiskMessage{
			ID:      uuid.NewString(),
			Room:    room,
			Author:  fmt.Sprintf("user_%d", i%500),
			Content: "Hello world, this is a performance test!",
			At:      at.UnixNano(),
			Seq:     seq,
		}
		value, _ := json.Marshal(record)

		key := fmt.Sprintf("%s%020d", messagePrefix(room), seq)
		_ = wb.Set([]byte(key), value)

		if i%200_000 == 0 && i > 0 {
			fmt.Printf("  -> Inserted %d messages...\n", i)
		}
	}

	err = wb.Flush()
	req.NoError(err)

	fmt.Printf("✅ Seeded %d messages in %v\n", totalMessages, time.Since(startSeed))

	// --- Phase 2: RETRIEVING 50 MESSAGES FROM ONE ROOM ---
	fmt.Printf("Retrieving first %d messages for %s...\n", limit, targetRoom)
	startGet := time.Now()

	messages, err := repo.Range(context.Background(), targetRoom, limit, 0)
	req.NoError(err)

	duration := time.Since(startGet)
	fmt.Printf("✅ Retrieved %d messages for %s in %v\n", len(messages), targetRoom, duration)

	req.Len(messages, limit)
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}
