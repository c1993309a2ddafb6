package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"campaign-chat/internal/adapters/dto"
	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/services"
)

// MessagesHandler routes the inbound entry point. The origin query
// parameter discriminates the two event shapes: broadcast triggers and
// carrier-native inbound messages.
type MessagesHandler struct {
	processor *services.Processor
	apiKey    string // shared secret for broadcast triggers
	appSecret string // HMAC secret for carrier webhooks
}

// NewMessagesHandler creates the messages endpoint handler.
func NewMessagesHandler(processor *services.Processor, apiKey, appSecret string) *MessagesHandler {
	return &MessagesHandler{
		processor: processor,
		apiKey:    apiKey,
		appSecret: appSecret,
	}
}

// ============================================================================
// POST /api/v2/messages?origin=...
// ============================================================================

// HandleMessages dispatches to the pipeline matching the event origin.
func (h *MessagesHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")

	switch origin {
	case dto.OriginBroadcastLite:
		h.handleBroadcastTrigger(w, r)
	case dto.OriginSignup:
		h.handleSignupConfirmation(w, r)
	case dto.OriginTwilio:
		h.handleCarrierInbound(w, r)
	default:
		WriteJSON(w, http.StatusUnprocessableEntity, "unknown origin: "+origin, nil)
	}
}

// handleBroadcastTrigger runs the broadcast pipeline synchronously and
// enumerates the created message in the response.
func (h *MessagesHandler) handleBroadcastTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Gambit-Api-Key") != h.apiKey {
		WriteJSON(w, http.StatusForbidden, "invalid api key", nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read trigger body", "error", err)
		WriteJSON(w, http.StatusBadRequest, "cannot read body", nil)
		return
	}
	defer r.Body.Close()

	pc, err := dto.ParseBroadcastLiteEvent(body)
	if err != nil {
		WriteError(w, domain.NewValidationError(err.Error()))
		return
	}

	if err := h.processor.ProcessBroadcast(r.Context(), pc); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, "Success", MessagesData{
		Outbound: pc.OutboundMessage,
	})
}

// handleSignupConfirmation runs the web-signup pipeline synchronously;
// the scheduler shares the broadcast trigger's api key.
func (h *MessagesHandler) handleSignupConfirmation(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Gambit-Api-Key") != h.apiKey {
		WriteJSON(w, http.StatusForbidden, "invalid api key", nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read signup body", "error", err)
		WriteJSON(w, http.StatusBadRequest, "cannot read body", nil)
		return
	}
	defer r.Body.Close()

	pc, err := dto.ParseSignupEvent(body)
	if err != nil {
		WriteError(w, domain.NewValidationError(err.Error()))
		return
	}

	if err := h.processor.ProcessSignup(r.Context(), pc); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, "Success", MessagesData{
		Outbound: pc.OutboundMessage,
	})
}

// handleCarrierInbound validates the webhook signature, then runs the
// member pipeline. The carrier is answered from the pipeline outcome so
// its retry machinery can react to terminal failures.
func (h *MessagesHandler) handleCarrierInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read webhook body", "error", err)
		WriteJSON(w, http.StatusBadRequest, "cannot read body", nil)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Hub-Signature-256")
	if signature == "" || !h.validateSignature(body, signature) {
		slog.Warn("Webhook signature validation failed")
		WriteJSON(w, http.StatusForbidden, "invalid signature", nil)
		return
	}

	form, err := parseForm(body)
	if err != nil {
		WriteError(w, domain.NewValidationError("cannot parse webhook form"))
		return
	}

	pc, err := dto.ParseTwilioInboundEvent(form)
	if err != nil {
		WriteError(w, domain.NewValidationError(err.Error()))
		return
	}

	if err := h.processor.ProcessInbound(r.Context(), pc); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, "Success", MessagesData{
		Inbound:  pc.InboundMessage,
		Outbound: pc.OutboundMessage,
	})
}

// validateSignature checks the HMAC SHA256 signature on carrier webhooks.
func (h *MessagesHandler) validateSignature(payload []byte, signatureHeader string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signatureHeader, prefix) {
		return false
	}
	expected := strings.TrimPrefix(signatureHeader, prefix)

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(payload)
	computed := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	return hmac.Equal([]byte(computed), []byte(expected))
}

func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}
