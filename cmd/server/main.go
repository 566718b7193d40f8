package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"roomchat/chat"
	"roomchat/infrastructure/httpapi"
	"roomchat/infrastructure/ws"
	"roomchat/internal"
	"roomchat/moderation"
	"roomchat/observability"
	"roomchat/ratelimit"
	"roomchat/repositories"
	"roomchat/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and owns the server lifecycle, so every
// defer executes before the process exits.
func run() error {
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.LoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	store := repositories.NewMessageRepository(db, log)
	defer func() {
		_ = store.Close()
	}()

	moderator, err := setupModeration(config, db, log)
	if err != nil {
		return err
	}

	registry := chat.NewRegistry()
	limiter := ratelimit.New(config.RateLimitMaxRequests, config.RateLimitWindow)
	hub := ws.NewHub(log)
	service := chat.NewService(registry, store, limiter, hub, moderator, log)

	wsHandler := ws.NewHandler(hub, service, config.SessionBufferSize, log)
	apiHandler := httpapi.NewHandler(service, log)
	router := httpapi.NewRouter(apiHandler, wsHandler, httpapi.RouterOptions{
		MaxBodyBytes:  config.MaxBodyBytes,
		RatePerMinute: config.HTTPRatePerMinute,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := observability.NewCollector()
	if err != nil {
		return fmt.Errorf("stats collector setup failed: %w", err)
	}

	supervisor := workers.NewSupervisor(log)
	supervisor.
		Add(workers.NewStorageGCWorker(db, config.GCInterval, log)).
		Add(workers.NewStatsWorker(collector, registry, limiter, config.StatsInterval, log))

	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	debug := internal.NewDebugServer(db, config.DebugPort, statsProvider(collector, registry, limiter), log)
	debug.Start()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown incomplete", "error", err)
	}
	hub.CloseAll()
	debug.Stop(shutdownCtx)
	supervisor.Stop()
	<-supervisorDone

	log.Info("Program stopped cleanly")
	return nil
}

func setupModeration(config internal.Config, db *badger.DB, log *slog.Logger) (*moderation.Moderator, error) {
	if !config.ModerationEnabled {
		return nil, nil
	}

	replacement, err := internal.CharacterRune(config.ModerationReplacement)
	if err != nil {
		return nil, err
	}
	loaded, err := moderation.LoadWordlists()
	if err != nil {
		return nil, fmt.Errorf("wordlists loading failed: %w", err)
	}
	stored, err := moderation.LoadStoredWords(db)
	if err != nil {
		return nil, fmt.Errorf("stored words loading failed: %w", err)
	}
	words := append(loaded.Words, stored...)
	moderator, err := moderation.NewModerator(words, replacement, log)
	if err != nil {
		return nil, fmt.Errorf("moderator setup failed: %w", err)
	}

	log.Info("Moderation enabled",
		"words", len(words),
		"stored", len(stored),
		"languages", loaded.Languages)
	return moderator, nil
}

func statsProvider(collector *observability.Collector, registry *chat.Registry, limiter *ratelimit.Limiter) internal.StatsProvider {
	return func() map[string]any {
		stats := map[string]any{
			"rooms":             registry.Rooms(),
			"connections":       registry.Connections(),
			"ratelimit_entries": limiter.Size(),
		}

		sample, err := collector.Sample()
		if err != nil {
			return stats
		}
		stats["pid"] = sample.PID
		stats["rss_bytes"] = sample.RSSBytes
		stats["cpu_percent"] = sample.CPUPercent
		stats["status"] = sample.Status
		stats["alloc_mb"] = sample.AllocMb
		stats["num_gc"] = sample.NumGC
		stats["goroutines"] = sample.Goroutines
		return stats
	}
}
