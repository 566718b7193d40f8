// Package observability exposes the Prometheus metrics and self stats of
// the chat server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	RoomJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_room_joins_total",
			Help: "Total number of room joins",
		},
	)

	MessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages persisted and broadcast",
		},
	)

	MessagesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "Total number of rejected messages by reason",
		},
		[]string{"reason"},
	)

	HistoryRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_history_requests_total",
			Help: "Total number of history reads served",
		},
	)

	BroadcastsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcasts_delivered_total",
			Help: "Total number of events delivered to sessions",
		},
	)

	BroadcastsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcasts_dropped_total",
			Help: "Total number of deliveries dropped because the session was gone or its queue full",
		},
	)

	RegistryRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_registry_rooms",
			Help: "Rooms known to the registry, dangling empty ones included",
		},
	)

	RegistryConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_registry_connections",
			Help: "Connections currently joined to at least one room",
		},
	)

	RateLimitEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rate_limit_entries",
			Help: "Identifiers tracked by the ingestion rate limiter",
		},
	)

	ProcessResidentMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_process_resident_memory_bytes",
			Help: "Resident set size of the server process",
		},
	)

	ProcessCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_process_cpu_percent",
			Help: "CPU usage of the server process",
		},
	)
)

// RejectReason labels for MessagesRejectedTotal.
const (
	RejectValidation = "validation"
	RejectRateLimit  = "rate_limit"
	RejectStorage    = "storage"
)
