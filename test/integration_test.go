package test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"roomchat/chat"
	"roomchat/moderation"
	"roomchat/ratelimit"
	"roomchat/repositories"
	"roomchat/workers"
)

// captureTransport satisfies the fan-out contract without sockets. The
// scenario drives the service synchronously, so no locking is needed.
type captureTransport struct {
	broadcasts []string
}

func (t *captureTransport) Emit(string, string, any) {}

func (t *captureTransport) BroadcastToRoom(_, event string, _ any, _ string) {
	t.broadcasts = append(t.broadcasts, event)
}

func (t *captureTransport) JoinGroup(string, string)  {}
func (t *captureTransport) LeaveGroup(string, string) {}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Reduced to 16 MB for testing (avoid 2 GB of preallocated storage)
	db, err := badger.Open(badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	moderator, err := moderation.NewModerator([]string{"flobber"}, '*', log)
	req.NoError(err)

	store := repositories.NewMessageRepository(db, log)
	transport := &captureTransport{}
	service := chat.NewService(chat.NewRegistry(), store,
		ratelimit.New(100, time.Minute), transport, moderator, log)

	// 1. Two members join, then a message runs the full pipeline into
	// storage before the fan-out.
	req.NoError(service.Join("conn-a", chat.JoinPayload{RoomID: "general", UserID: "alice"}))
	req.NoError(service.Join("conn-b", chat.JoinPayload{RoomID: "general", UserID: "bob"}))

	sent, err := service.Send(ctx, "conn-a", chat.SendPayload{
		RoomID:  "general",
		UserID:  "alice",
		Message: "that flobber stole my <pen>",
	})
	req.NoError(err)
	req.Equal("that ******* stole my &lt;pen&gt;", sent.Content)
	req.Contains(transport.broadcasts, chat.EventReceive)

	history, err := service.History(ctx, chat.HistoryRequestPayload{RoomID: "general"})
	req.NoError(err)
	req.Equal(1, history.Count)
	req.Equal(sent.ID.String(), history.Messages[0].ID)

	// 2. Restart the storage layer. The log and its ordering must survive.
	req.NoError(store.Close())
	req.NoError(db.Close())

	db, err = badger.Open(badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() {
		db.Close()
	})

	store = repositories.NewMessageRepository(db, log)
	service = chat.NewService(chat.NewRegistry(), store,
		ratelimit.New(100, time.Minute), transport, nil, log)

	second, err := service.PostMessage(ctx, "general", "bob", "still here after the restart")
	req.NoError(err)

	history, err = service.History(ctx, chat.HistoryRequestPayload{RoomID: "general"})
	req.NoError(err)
	req.Equal(2, history.Count)
	req.Equal(sent.ID.String(), history.Messages[0].ID)
	req.Equal(second.ID.String(), history.Messages[1].ID)
	req.LessOrEqual(history.Messages[0].Timestamp, history.Messages[1].Timestamp)

	// 3. The storage GC worker runs against the same database and winds
	// down cleanly with the supervisor.
	supervisor := workers.NewSupervisor(log).
		Add(workers.NewStorageGCWorker(db, 10*time.Millisecond, log))

	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()

	// And give the ticker time to fire at least once
	time.Sleep(50 * time.Millisecond)
	supervisor.Stop()

	select {
	case <-done:
		// Then the supervised workers stopped with the run
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: supervisor never stopped")
	}
}
