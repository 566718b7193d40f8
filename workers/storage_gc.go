package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// StorageGCWorker periodically reclaims space in the badger value log.
// Badger never runs this on its own, so a long-lived server that skips it
// grows its value log forever.
type StorageGCWorker struct {
	db       *badger.DB
	interval time.Duration
	log      *slog.Logger
}

func NewStorageGCWorker(db *badger.DB, interval time.Duration, log *slog.Logger) *StorageGCWorker {
	return &StorageGCWorker{db: db, interval: interval, log: log}
}

func (w *StorageGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing worth rewriting
			err := w.db.RunValueLogGC(0.5)
			if err != nil && !stderrors.Is(err, badger.ErrNoRewrite) {
				w.log.Warn("Value log GC failed", "error", err)
			}
		}
	}
}
