package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// MessagePayload is the fully-typed precursor of a persisted Message.
// Payloads are built by explicit functions and merged with documented
// precedence: request-derived values override conversation defaults.
type MessagePayload struct {
	ConversationID int64
	CampaignID     *int
	Topic          domain.Topic
	Text           string
	Template       string

	BroadcastID       *string
	Metadata          map[string]string
	Attachments       []domain.Attachment
	PlatformMessageID *string
	AgentID           *string
	Match             *string
	Macro             *string
}

// MessageFactory deterministically builds and persists Message records
// from a conversation, a text/template pair, and request-derived extras.
type MessageFactory struct {
	messages      ports.MessageRepository
	conversations ports.ConversationRepository
	renderer      ports.TemplateRenderer
}

// NewMessageFactory creates a message factory.
func NewMessageFactory(messages ports.MessageRepository, conversations ports.ConversationRepository, renderer ports.TemplateRenderer) *MessageFactory {
	return &MessageFactory{messages: messages, conversations: conversations, renderer: renderer}
}

// DefaultPayload snapshots the conversation's campaign and topic, plus
// text/template when supplied.
func (f *MessageFactory) DefaultPayload(conversation *domain.Conversation, text, template string) MessagePayload {
	return MessagePayload{
		ConversationID: conversation.ID,
		CampaignID:     conversation.CampaignID,
		Topic:          conversation.Topic,
		Text:           text,
		Template:       template,
	}
}

// PayloadFromContext extracts the request-derived extras for a message in
// the given direction.
//
// The broadcast id is taken from the context when explicitly present;
// otherwise, for inbound messages, it falls back to the conversation's
// last outbound broadcast so a reply is linked to the broadcast that
// prompted it. Attachments are selected by physical direction. Optional
// fields are copied only when present.
func (f *MessageFactory) PayloadFromContext(pc *PipelineContext, direction domain.Direction) MessagePayload {
	payload := MessagePayload{
		Metadata:    pc.Metadata,
		Attachments: pc.Attachments.ByDirection(direction.AttachmentDirection()),
	}

	if pc.BroadcastID != "" {
		id := pc.BroadcastID
		payload.BroadcastID = &id
	} else if direction == domain.DirectionInbound && pc.Conversation != nil {
		if id := pc.Conversation.LastOutboundBroadcastID(); id != "" {
			payload.BroadcastID = &id
		}
	}

	if pc.PlatformMessageID != "" {
		id := pc.PlatformMessageID
		payload.PlatformMessageID = &id
	}
	if pc.AgentID != "" {
		id := pc.AgentID
		payload.AgentID = &id
	}
	if pc.Match != "" {
		match := pc.Match
		payload.Match = &match
	}
	if pc.Macro != "" {
		macro := string(pc.Macro)
		payload.Macro = &macro
	}

	return payload
}

// CreateMessage builds and persists a message for the conversation.
// Outbound text is passed through the template renderer before being
// stored; inbound text is stored verbatim. The context payload wins over
// conversation defaults on collision.
func (f *MessageFactory) CreateMessage(ctx context.Context, conversation *domain.Conversation, direction domain.Direction, text, template string, pc *PipelineContext) (*domain.Message, error) {
	messageText := text
	if direction != domain.DirectionInbound {
		rendered, err := f.renderer.Render(text, pc.TemplateVars())
		if err != nil {
			return nil, domain.NewUpstreamError("render outbound text", err)
		}
		messageText = rendered
	}

	payload := mergePayloads(
		f.DefaultPayload(conversation, messageText, template),
		f.PayloadFromContext(pc, direction),
	)

	msg := &domain.Message{
		ID:                uuid.NewString(),
		ConversationID:    payload.ConversationID,
		Direction:         direction,
		Text:              payload.Text,
		Template:          payload.Template,
		CampaignID:        payload.CampaignID,
		Topic:             payload.Topic,
		BroadcastID:       payload.BroadcastID,
		PlatformMessageID: payload.PlatformMessageID,
		AgentID:           payload.AgentID,
		Match:             payload.Match,
		Macro:             payload.Macro,
		Metadata:          payload.Metadata,
		Attachments:       payload.Attachments,
		CreatedAt:         time.Now(),
	}

	if err := f.messages.SaveMessage(ctx, msg); err != nil {
		return nil, domain.NewPersistenceError("create message", err)
	}

	slog.Debug("message created",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"direction", msg.Direction,
		"template", msg.Template,
	)

	return msg, nil
}

// CreateAndSetLastOutbound creates the message and updates the owning
// conversation's last-outbound reference.
func (f *MessageFactory) CreateAndSetLastOutbound(ctx context.Context, conversation *domain.Conversation, direction domain.Direction, text, template string, pc *PipelineContext) (*domain.Message, error) {
	msg, err := f.CreateMessage(ctx, conversation, direction, text, template, pc)
	if err != nil {
		return nil, err
	}

	if err := f.conversations.SetLastOutboundMessage(ctx, conversation.ID, msg.ID); err != nil {
		return nil, domain.NewPersistenceError("set last outbound message", err)
	}
	conversation.LastOutboundMessageID = &msg.ID
	conversation.LastOutboundMessage = msg

	return msg, nil
}

// mergePayloads overlays the request payload onto the conversation
// defaults. Only fields the request payload actually carries replace the
// defaults; absent optionals stay absent rather than becoming explicit
// nulls.
func mergePayloads(defaults, fromContext MessagePayload) MessagePayload {
	merged := defaults
	merged.BroadcastID = fromContext.BroadcastID
	merged.Metadata = fromContext.Metadata
	merged.Attachments = fromContext.Attachments

	if fromContext.PlatformMessageID != nil {
		merged.PlatformMessageID = fromContext.PlatformMessageID
	}
	if fromContext.AgentID != nil {
		merged.AgentID = fromContext.AgentID
	}
	if fromContext.Match != nil {
		merged.Match = fromContext.Match
	}
	if fromContext.Macro != nil {
		merged.Macro = fromContext.Macro
	}

	return merged
}
