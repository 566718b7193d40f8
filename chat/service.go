// Package chat implements the messaging core: room membership, message
// fan-out, history queries and the transport contract they are served
// through.
package chat

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"roomchat/domain"
	"roomchat/errors"
	"roomchat/moderation"
	"roomchat/observability"
	"roomchat/ratelimit"
	"roomchat/repositories"
	"roomchat/validation"
)

// Transport is the delivery side the core emits through. Implementations
// log delivery failures themselves; a dead receiver is not a chat error.
type Transport interface {
	Emit(connID, event string, payload any)
	BroadcastToRoom(roomID, event string, payload any, excludeConn string)
	JoinGroup(connID, roomID string)
	LeaveGroup(connID, roomID string)
}

// Service coordinates registry, store, limiter and transport. Mutating
// operations emit their acks and broadcasts here; queries return data and
// let the caller shape the reply. Errors returned are kinded, callers map
// them to chat:error events or HTTP statuses.
type Service struct {
	registry  *Registry
	store     repositories.IMessageRepository
	limiter   *ratelimit.Limiter
	transport Transport
	moderator *moderation.Moderator
	log       *slog.Logger
}

// NewService wires the messaging core. moderator may be nil, content then
// passes through unfiltered.
func NewService(
	registry *Registry,
	store repositories.IMessageRepository,
	limiter *ratelimit.Limiter,
	transport Transport,
	moderator *moderation.Moderator,
	log *slog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		store:     store,
		limiter:   limiter,
		transport: transport,
		moderator: moderator,
		log:       log,
	}
}

// Join registers the connection as a member of the room, announces it to
// the other members and acknowledges the caller.
func (s *Service) Join(connID string, p JoinPayload) error {
	roomID, err := validation.RoomID(p.RoomID)
	if err != nil {
		return err
	}
	userID, _ := p.UserID.(string)

	s.registry.Join(connID, roomID)
	s.transport.JoinGroup(connID, roomID)
	observability.RoomJoinsTotal.Inc()

	s.transport.BroadcastToRoom(roomID, EventUserJoined, PresencePayload{RoomID: roomID, UserID: userID}, connID)
	s.transport.Emit(connID, EventJoined, PresencePayload{RoomID: roomID, UserID: userID})

	s.log.Info("User joined room", "room", roomID, "user", userID, "connection", connID)
	return nil
}

// Send persists a message and broadcasts it to the room's current members,
// sender included. Nothing is broadcast on failure.
func (s *Service) Send(ctx context.Context, connID string, p SendPayload) (domain.Message, error) {
	return s.send(ctx, connID, p.RoomID, p.UserID, p.Message)
}

// PostMessage is the HTTP entry point for Send: no originating connection,
// rate limited per sender identity instead.
func (s *Service) PostMessage(ctx context.Context, roomID string, senderID, content any) (domain.Message, error) {
	return s.send(ctx, "", roomID, senderID, content)
}

func (s *Service) send(ctx context.Context, connID string, roomV, userV, msgV any) (domain.Message, error) {
	if s.moderator != nil {
		if raw, ok := msgV.(string); ok {
			msgV = s.moderator.Review(raw).Content
		}
	}

	data, err := validation.ChatData(roomV, userV, msgV)
	if err != nil {
		observability.MessagesRejectedTotal.WithLabelValues(observability.RejectValidation).Inc()
		return domain.Message{}, err
	}

	identity := connID
	if identity == "" {
		// HTTP senders share one bucket per sender id
		identity = "sender:" + data.UserID
	}
	if !s.limiter.Allow(identity) {
		observability.MessagesRejectedTotal.WithLabelValues(observability.RejectRateLimit).Inc()
		return domain.Message{}, errors.RateLimited("Rate limit exceeded. Please slow down.")
	}

	message, err := s.store.Append(ctx, data.RoomID, data.UserID, data.Message)
	if err != nil {
		observability.MessagesRejectedTotal.WithLabelValues(observability.RejectStorage).Inc()
		s.log.Error("Failed to persist message", "room", data.RoomID, "sender", data.UserID, "error", err)
		return domain.Message{}, err
	}

	observability.MessagesSentTotal.Inc()
	s.transport.BroadcastToRoom(data.RoomID, EventReceive, NewMessagePayload(message, connID), "")

	return message, nil
}

// History returns up to limit persisted messages of the room in ascending
// creation order, skipping the offset earliest.
func (s *Service) History(ctx context.Context, p HistoryRequestPayload) (HistoryPayload, error) {
	roomID, err := validation.RoomID(p.RoomID)
	if err != nil {
		return HistoryPayload{}, err
	}
	page, err := validation.Pagination(p.Limit, p.Offset)
	if err != nil {
		return HistoryPayload{}, err
	}

	messages, err := s.store.Range(ctx, roomID, page.Limit, page.Offset)
	if err != nil {
		s.log.Error("Failed to read message history", "room", roomID, "error", err)
		return HistoryPayload{}, err
	}

	observability.HistoryRequestsTotal.Inc()

	payloads := lo.Map(messages, func(message domain.Message, _ int) MessagePayload {
		return NewMessagePayload(message, "")
	})

	return HistoryPayload{RoomID: roomID, Messages: payloads, Count: len(payloads)}, nil
}

// Leave removes the connection from the room, tells the other members and
// acknowledges the caller. Leaving a room never joined still succeeds.
func (s *Service) Leave(connID string, p LeavePayload) error {
	roomID, err := validation.RoomID(p.RoomID)
	if err != nil {
		return err
	}
	userID, _ := p.UserID.(string)

	s.registry.Leave(connID, roomID)
	s.transport.LeaveGroup(connID, roomID)

	s.transport.BroadcastToRoom(roomID, EventUserLeft, PresencePayload{RoomID: roomID, UserID: userID}, connID)
	s.transport.Emit(connID, EventLeft, PresencePayload{RoomID: roomID, UserID: userID})

	s.log.Info("User left room", "room", roomID, "user", userID, "connection", connID)
	return nil
}

// Typing relays a typing indicator to the other members of the room. It is
// best effort: invalid payloads are dropped without a reply and nothing is
// persisted.
func (s *Service) Typing(connID string, p TypingPayload) {
	roomID, err := validation.RoomID(p.RoomID)
	if err != nil {
		return
	}
	userID, err := validation.UserID(p.UserID)
	if err != nil {
		return
	}

	s.transport.BroadcastToRoom(roomID, EventUserTyping, TypingNoticePayload{
		RoomID:   roomID,
		UserID:   userID,
		IsTyping: validation.AsBool(p.IsTyping),
	}, connID)
}

// Disconnect removes the connection from every room it had joined and
// notifies the remaining members of each.
func (s *Service) Disconnect(connID, reason string) {
	rooms := s.registry.RemoveConnection(connID)
	for _, roomID := range rooms {
		s.transport.BroadcastToRoom(roomID, EventUserDisconnected, DisconnectedPayload{
			RoomID:       roomID,
			ConnectionID: connID,
			Reason:       reason,
		}, connID)
	}

	if len(rooms) > 0 {
		s.log.Info("Connection removed from rooms", "connection", connID, "rooms", len(rooms))
	}
}
