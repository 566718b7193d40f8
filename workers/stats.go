package workers

import (
	"context"
	"log/slog"
	"time"

	"roomchat/chat"
	"roomchat/observability"
	"roomchat/ratelimit"
)

// StatsWorker samples process health on an interval and publishes it,
// together with registry and limiter sizes, to the prometheus gauges.
type StatsWorker struct {
	collector *observability.Collector
	registry  *chat.Registry
	limiter   *ratelimit.Limiter
	interval  time.Duration
	log       *slog.Logger
}

func NewStatsWorker(
	collector *observability.Collector,
	registry *chat.Registry,
	limiter *ratelimit.Limiter,
	interval time.Duration,
	log *slog.Logger,
) *StatsWorker {
	return &StatsWorker{
		collector: collector,
		registry:  registry,
		limiter:   limiter,
		interval:  interval,
		log:       log,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			observability.RegistryRooms.Set(float64(w.registry.Rooms()))
			observability.RegistryConnections.Set(float64(w.registry.Connections()))
			observability.RateLimitEntries.Set(float64(w.limiter.Size()))

			stats, err := w.collector.Sample()
			if err != nil {
				w.log.Error("Failed to sample process stats", "error", err)
				continue
			}

			observability.ProcessResidentMemoryBytes.Set(float64(stats.RSSBytes))
			observability.ProcessCPUPercent.Set(stats.CPUPercent)
		}
	}
}
