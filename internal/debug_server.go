package internal

import (
	"context"
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"

	"roomchat/repositories"
)

//go:embed inspect.html
var templatesFS embed.FS

// MessageRow is one stored record rendered on the inspect page.
type MessageRow struct {
	Key     string
	Room    string
	Author  string
	Content string
	At      string
	Seq     uint64
}

type PageData struct {
	Prefix string
	Rows   []MessageRow
	Stats  map[string]any
}

// StatsProvider feeds the dashboard header and the /stats endpoint.
type StatsProvider func() map[string]any

// DebugServer exposes the raw store and process stats on a side port,
// never on the public one.
type DebugServer struct {
	server *http.Server
	log    *slog.Logger
}

func NewDebugServer(db *badger.DB, port int, stats StatsProvider, log *slog.Logger) *DebugServer {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{Prefix: prefix, Stats: map[string]any{}}
		if stats != nil {
			data.Stats = stats()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(value []byte) error {
					data.Rows = append(data.Rows, rowFromRecord(string(item.Key()), value))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{}
		if stats != nil {
			body = stats()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	return &DebugServer{
		server: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux},
		log:    log,
	}
}

func (d *DebugServer) Start() {
	go func() {
		d.log.Info("Debug server listening", "addr", d.server.Addr)
		err := d.server.ListenAndServe()
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			d.log.Error("Debug server failed", "error", err)
		}
	}()
}

func (d *DebugServer) Stop(ctx context.Context) {
	_ = d.server.Shutdown(ctx)
}

func rowFromRecord(key string, value []byte) MessageRow {
	row := MessageRow{
		Key:     key,
		Content: fmt.Sprintf("%d bytes", len(value)),
	}

	var record repositories.DiskMessage
	if err := json.Unmarshal(value, &record); err != nil {
		return row
	}

	row.Room = record.Room
	row.Author = record.Author
	row.Content = record.Content
	row.At = time.Unix(0, record.At).UTC().Format("15:04:05.000")
	row.Seq = record.Seq
	return row
}
