package httpapi

import (
	"encoding/json"
	"net/http"

	"roomchat/errors"
)

// Envelope is the JSON shape of every API response. Count is set on list
// replies only.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends a response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}

// Error sends a failure envelope with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, Envelope{Success: false, Error: message})
}

// serviceError maps a kinded core error onto an HTTP status. Storage
// details never leak, UserMessage already reduced them to a generic line.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		h.Error(w, http.StatusBadRequest, errors.UserMessage(err))
	case errors.KindRateLimit:
		h.Error(w, http.StatusTooManyRequests, errors.UserMessage(err))
	default:
		h.Error(w, http.StatusInternalServerError, errors.UserMessage(err))
	}
}
