// Package repository implements data persistence adapters
// Following Hexagonal Architecture: Adapters implement ports defined in core
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// Ensure MariaDBRepository implements the required interfaces
var (
	_ ports.ConversationRepository = (*MariaDBRepository)(nil)
	_ ports.MessageRepository      = (*MariaDBRepository)(nil)
)

// MariaDBRepository implements conversation and message persistence.
type MariaDBRepository struct {
	db *sql.DB
}

// NewMariaDBRepository creates a new MariaDB repository instance
func NewMariaDBRepository(db *sql.DB) *MariaDBRepository {
	return &MariaDBRepository{
		db: db,
	}
}

// ============================================================================
// ConversationRepository Implementation
// ============================================================================

// GetByPlatformUserID loads a conversation and populates its last
// outbound message. Returns (nil, nil) when no conversation exists for
// the address.
func (r *MariaDBRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*domain.Conversation, error) {
	query := `
		SELECT id, platform, platform_user_id, topic, paused,
		       campaign_id, signup_status, last_outbound_message_id,
		       created_at, updated_at
		FROM conversations
		WHERE platform_user_id = ?
	`

	var (
		c            domain.Conversation
		signupStatus sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, platformUserID).Scan(
		&c.ID,
		&c.Platform,
		&c.PlatformUserID,
		&c.Topic,
		&c.Paused,
		&c.CampaignID,
		&signupStatus,
		&c.LastOutboundMessageID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	c.SignupStatus = domain.SignupStatus(signupStatus.String)

	if c.LastOutboundMessageID != nil {
		msg, err := r.getMessageByID(ctx, *c.LastOutboundMessageID)
		if err != nil {
			return nil, err
		}
		c.LastOutboundMessage = msg
	}

	return &c, nil
}

// Create persists a new conversation and fills in its generated id.
func (r *MariaDBRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		INSERT INTO conversations (platform, platform_user_id, topic, paused, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		conversation.Platform,
		conversation.PlatformUserID,
		conversation.Topic,
		conversation.Paused,
		conversation.CreatedAt,
	)
	if err != nil {
		slog.Error("Failed to create conversation",
			"error", err,
			"platform", conversation.Platform,
		)
		return fmt.Errorf("create conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create conversation id: %w", err)
	}
	conversation.ID = id

	return nil
}

// Save persists the mutable state fields of an existing conversation.
func (r *MariaDBRepository) Save(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		UPDATE conversations
		SET topic = ?, paused = ?, campaign_id = ?, signup_status = ?, updated_at = NOW()
		WHERE id = ?
	`

	signupStatus := sql.NullString{
		String: string(conversation.SignupStatus),
		Valid:  conversation.SignupStatus != "",
	}

	_, err := r.db.ExecContext(ctx, query,
		conversation.Topic,
		conversation.Paused,
		conversation.CampaignID,
		signupStatus,
		conversation.ID,
	)
	if err != nil {
		slog.Error("Failed to save conversation",
			"error", err,
			"conversation_id", conversation.ID,
		)
		return fmt.Errorf("save conversation: %w", err)
	}

	return nil
}

// SetLastOutboundMessage updates the last-outbound reference.
func (r *MariaDBRepository) SetLastOutboundMessage(ctx context.Context, conversationID int64, messageID string) error {
	query := `
		UPDATE conversations
		SET last_outbound_message_id = ?, updated_at = NOW()
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, messageID, conversationID)
	if err != nil {
		slog.Error("Failed to set last outbound message",
			"error", err,
			"conversation_id", conversationID,
			"message_id", messageID,
		)
		return fmt.Errorf("set last outbound message: %w", err)
	}

	return nil
}

// ============================================================================
// MessageRepository Implementation
// ============================================================================

// SaveMessage persists a message record. Metadata and attachments are
// stored as JSON columns.
func (r *MariaDBRepository) SaveMessage(ctx context.Context, msg *domain.Message) error {
	metadataJSON, err := marshalOrEmptyObject(msg.Metadata)
	if err != nil {
		return fmt.Errorf("encode message metadata: %w", err)
	}
	attachmentsJSON, err := marshalOrEmptyArray(msg.Attachments)
	if err != nil {
		return fmt.Errorf("encode message attachments: %w", err)
	}

	query := `
		INSERT INTO messages (
			id, conversation_id, direction, text, template,
			campaign_id, topic, broadcast_id, platform_message_id,
			agent_id, match_trigger, macro, metadata, attachments,
			is_synced, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Direction,
		msg.Text,
		msg.Template,
		msg.CampaignID,
		msg.Topic,
		msg.BroadcastID,
		msg.PlatformMessageID,
		msg.AgentID,
		msg.Match,
		msg.Macro,
		metadataJSON,
		attachmentsJSON,
		msg.IsSynced,
		msg.CreatedAt,
	)
	if err != nil {
		slog.Error("Failed to create message",
			"error", err,
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
		)
		return fmt.Errorf("create message: %w", err)
	}

	slog.Debug("Message persisted",
		"message_id", msg.ID,
		"direction", msg.Direction,
	)

	return nil
}

// SetPlatformMessageID attaches the carrier message id after dispatch.
// This is the only field a message may gain after creation.
func (r *MariaDBRepository) SetPlatformMessageID(ctx context.Context, id string, platformMessageID string) error {
	query := `
		UPDATE messages
		SET platform_message_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, platformMessageID, id)
	if err != nil {
		slog.Error("Failed to set platform message id",
			"error", err,
			"message_id", id,
		)
		return fmt.Errorf("set platform message id: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		slog.Warn("No message found for platform id update",
			"message_id", id,
		)
	}

	return nil
}

func (r *MariaDBRepository) getMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, direction, text, template,
		       campaign_id, topic, broadcast_id, platform_message_id,
		       agent_id, match_trigger, macro, metadata, attachments,
		       is_synced, created_at
		FROM messages
		WHERE id = ?
	`

	var (
		m               domain.Message
		template        sql.NullString
		metadataJSON    []byte
		attachmentsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.ConversationID,
		&m.Direction,
		&m.Text,
		&template,
		&m.CampaignID,
		&m.Topic,
		&m.BroadcastID,
		&m.PlatformMessageID,
		&m.AgentID,
		&m.Match,
		&m.Macro,
		&metadataJSON,
		&attachmentsJSON,
		&m.IsSynced,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		// A dangling reference is logged, not fatal.
		slog.Warn("Referenced message not found", "message_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}

	m.Template = template.String
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &m.Metadata)
	}
	if len(attachmentsJSON) > 0 {
		_ = json.Unmarshal(attachmentsJSON, &m.Attachments)
	}

	return &m, nil
}

func marshalOrEmptyObject(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func marshalOrEmptyArray(a []domain.Attachment) ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}
