// Package httpapi serves the room-scoped REST surface of the chat server.
// It sits on the same messaging core as the websocket side, an HTTP
// submission is broadcast to live room members all the same.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"roomchat/chat"
)

// PostMessageRequest is the body of a message submission.
type PostMessageRequest struct {
	SenderID string `json:"senderId" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type Handler struct {
	service  *chat.Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(service *chat.Service, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// PostMessage persists a message in the room from the request path and
// replies with the stored record.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.Error(w, http.StatusBadRequest, "senderId and content are required")
		return
	}

	message, err := h.service.PostMessage(r.Context(), roomID, req.SenderID, req.Content)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, Envelope{
		Success: true,
		Data:    chat.NewMessagePayload(message, ""),
	})
}

// GetMessages returns the room history window selected by the limit and
// offset query parameters.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	query := r.URL.Query()
	var limit, offset any
	if v := query.Get("limit"); v != "" {
		limit = v
	}
	if v := query.Get("offset"); v != "" {
		offset = v
	}

	history, err := h.service.History(r.Context(), chat.HistoryRequestPayload{
		RoomID: roomID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    history.Messages,
		Count:   lo.ToPtr(history.Count),
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
