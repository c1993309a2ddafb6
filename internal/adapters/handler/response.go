// Package handler implements HTTP request handlers
// Following Hexagonal Architecture: Adapters translate HTTP to domain logic
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"campaign-chat/internal/core/domain"
)

// APIResponse represents the standard response envelope
type APIResponse struct {
	Code    int         `json:"code"`    // HTTP status code (200, 404, 422, ...)
	Message string      `json:"message"` // Human-readable message
	Data    interface{} `json:"data"`    // Actual payload (can be null)
}

// MessagesData enumerates the messages created by one pipeline
// invocation: for broadcast triggers one outbound message, for carrier
// inbound the inbound message plus the reply, if any.
type MessagesData struct {
	Inbound  *domain.Message `json:"inbound,omitempty"`
	Outbound *domain.Message `json:"outbound,omitempty"`
}

// WriteJSON writes a response in the standard envelope.
func WriteJSON(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// WriteError classifies err and writes the matching envelope. Errors
// without an explicit classification map to 500.
func WriteError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		code = domainErr.HTTPStatus()
	}
	WriteJSON(w, code, err.Error(), nil)
}
