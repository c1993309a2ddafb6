// Package ports defines interfaces for dependency inversion
// Following Hexagonal Architecture: Core defines contracts, Adapters implement them
package ports

import (
	"context"
	"time"

	"campaign-chat/internal/core/domain"
)

// ConversationRepository handles conversation persistence.
// Persistence is an explicit port, never a method on the record itself.
type ConversationRepository interface {
	// GetByPlatformUserID loads a conversation with its last outbound
	// message populated. Returns (nil, nil) when none exists - absence
	// is an expected state on first contact, not an error.
	GetByPlatformUserID(ctx context.Context, platformUserID string) (*domain.Conversation, error)

	// Create persists a new conversation and fills in its id.
	Create(ctx context.Context, conversation *domain.Conversation) error

	// Save persists the mutable state fields (topic, paused, campaign,
	// signup status) of an existing conversation.
	Save(ctx context.Context, conversation *domain.Conversation) error

	// SetLastOutboundMessage updates the last-outbound reference.
	SetLastOutboundMessage(ctx context.Context, conversationID int64, messageID string) error
}

// MessageRepository handles message persistence.
type MessageRepository interface {
	// SaveMessage persists a message. Messages are immutable after this
	// call except for the post-dispatch platform message id.
	SaveMessage(ctx context.Context, msg *domain.Message) error

	// SetPlatformMessageID attaches the carrier's message id after a
	// successful dispatch.
	SetPlatformMessageID(ctx context.Context, id string, platformMessageID string) error
}

// ReplyCache is a short-TTL lookaside cache for expensive upstream
// lookups. Advisory only: staleness can only cause an extra upstream
// call, never a correctness violation.
type ReplyCache interface {
	// Get returns the cached value and true, or ok=false on a miss.
	// A miss is never an error; only backend failures are.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes through with the given TTL and returns the stored value
	// so read-through callers can use it without a second Get.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error)
}
