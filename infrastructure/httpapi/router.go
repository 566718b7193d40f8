package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries the knobs the router needs from configuration.
type RouterOptions struct {
	MaxBodyBytes  int64
	RatePerMinute int
}

// NewRouter wires middleware and routes. The ambient IP limiter guards the
// whole API surface; the per-sender limiter inside the core is separate.
func NewRouter(handler *Handler, wsHandler http.Handler, opts RouterOptions, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health)
	r.Handle("/ws", wsHandler)

	r.Group(func(api chi.Router) {
		api.Use(maxBody(opts.MaxBodyBytes))
		api.Use(httprate.LimitByIP(opts.RatePerMinute, time.Minute))

		api.Route("/api/rooms/{roomID}/messages", func(api chi.Router) {
			api.Post("/", handler.PostMessage)
			api.Get("/", handler.GetMessages)
		})
	})

	return r
}

func maxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("Request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
