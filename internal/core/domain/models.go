// Package domain contains core business entities
// Following Hexagonal Architecture: These models are infrastructure-agnostic
package domain

import (
	"time"
)

// Platform identifies the messaging channel a conversation lives on.
const (
	PlatformSMS   = "sms"
	PlatformSlack = "slack"
)

// Topic is the current conversational mode of a Conversation.
// Besides the fixed values below, a topic may be the id of a
// broadcast-defined topic, so the type stays an open string.
type Topic string

const (
	// TopicRandom is the default/idle topic.
	TopicRandom Topic = "random"
	// TopicSupport pauses the conversation for a human agent.
	TopicSupport Topic = "support"
	// TopicCampaign enables campaign dialogue triggers.
	TopicCampaign Topic = "campaign"
)

// SignupStatus tracks campaign participation for a conversation.
// Empty string means unset (no active campaign).
type SignupStatus string

const (
	SignupStatusPrompt   SignupStatus = "prompt"
	SignupStatusDoing    SignupStatus = "doing"
	SignupStatusDeclined SignupStatus = "declined"
)

// Direction of a Message relative to the platform user.
type Direction string

const (
	DirectionInbound         Direction = "inbound"
	DirectionOutboundReply   Direction = "outbound-reply"
	DirectionOutboundAPISend Direction = "outbound-api-send"
)

// IsOutbound reports whether the direction is any outbound variant.
func (d Direction) IsOutbound() bool {
	return d == DirectionOutboundReply || d == DirectionOutboundAPISend
}

// AttachmentDirection maps a message direction onto the physical
// attachment bucket: any outbound variant reads the "outbound" bucket,
// only true inbound messages read "inbound".
func (d Direction) AttachmentDirection() string {
	if d.IsOutbound() {
		return "outbound"
	}
	return "inbound"
}

// Conversation represents a chat thread with one platform user.
//
// Two invariants hold at all times:
//   - Paused is true exactly when Topic == TopicSupport.
//   - CampaignID and SignupStatus are set and cleared together.
type Conversation struct {
	ID             int64        `json:"id" db:"id"`
	Platform       string       `json:"platform" db:"platform"`
	PlatformUserID string       `json:"platform_user_id" db:"platform_user_id"`
	Topic          Topic        `json:"topic" db:"topic"`
	Paused         bool         `json:"paused" db:"paused"`
	CampaignID     *int         `json:"campaign_id,omitempty" db:"campaign_id"`
	SignupStatus   SignupStatus `json:"signup_status,omitempty" db:"signup_status"`

	// LastOutboundMessageID references the most recent outbound Message.
	// Updated on every successful outbound create.
	LastOutboundMessageID *string `json:"last_outbound_message_id,omitempty" db:"last_outbound_message_id"`

	// LastOutboundMessage is populated on load when the reference is set.
	LastOutboundMessage *Message `json:"-" db:"-"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// NewConversation returns a Conversation in its initial state for a
// (platform, platformUserId) pair seen for the first time.
func NewConversation(platform, platformUserID string) *Conversation {
	return &Conversation{
		Platform:       platform,
		PlatformUserID: platformUserID,
		Topic:          TopicRandom,
		Paused:         false,
		CreatedAt:      time.Now(),
	}
}

// LastOutboundBroadcastID returns the broadcast id of the last outbound
// message, or empty when there is none. Links an inbound reply to the
// broadcast that prompted it.
func (c *Conversation) LastOutboundBroadcastID() string {
	if c.LastOutboundMessage == nil || c.LastOutboundMessage.BroadcastID == nil {
		return ""
	}
	return *c.LastOutboundMessage.BroadcastID
}

// Attachment describes a single media item carried by a message.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// AttachmentSet groups request attachments by physical direction.
type AttachmentSet struct {
	Inbound  []Attachment `json:"inbound"`
	Outbound []Attachment `json:"outbound"`
}

// ByDirection returns the bucket matching the given physical direction.
func (s AttachmentSet) ByDirection(direction string) []Attachment {
	if direction == "outbound" {
		return s.Outbound
	}
	return s.Inbound
}

// Message is a single inbound or outbound event on a conversation.
// Topic and CampaignID are snapshots of the owning Conversation at
// creation time and are never recomputed. A Message is immutable once
// created except for PlatformMessageID, attached after dispatch.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID int64     `json:"conversation_id" db:"conversation_id"`
	Direction      Direction `json:"direction" db:"direction"`
	Text           string    `json:"text" db:"text"`
	Template       string    `json:"template,omitempty" db:"template"`
	CampaignID     *int      `json:"campaign_id,omitempty" db:"campaign_id"`
	Topic          Topic     `json:"topic" db:"topic"`

	BroadcastID       *string           `json:"broadcast_id,omitempty" db:"broadcast_id"`
	PlatformMessageID *string           `json:"platform_message_id,omitempty" db:"platform_message_id"`
	AgentID           *string           `json:"agent_id,omitempty" db:"agent_id"`
	Match             *string           `json:"match,omitempty" db:"match"`
	Macro             *string           `json:"macro,omitempty" db:"macro"`
	Metadata          map[string]string `json:"metadata,omitempty" db:"metadata"`
	Attachments       []Attachment      `json:"attachments,omitempty" db:"attachments"`

	// IsSynced is owned by the external home-server sync job, which
	// flips the column directly once a message is copied off. This
	// service only ever writes false and reads it for retention.
	IsSynced  bool      `json:"is_synced" db:"is_synced"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BroadcastType discriminates broadcast definitions.
type BroadcastType string

const (
	BroadcastTypeLegacy              BroadcastType = "legacy"
	BroadcastTypeAskYesNo            BroadcastType = "askYesNo"
	BroadcastTypeAskVotingPlanStatus BroadcastType = "askVotingPlanStatus"
	BroadcastTypeAutoReply           BroadcastType = "autoReply"
)

// CampaignRef is a minimal campaign reference embedded in topic definitions.
type CampaignRef struct {
	ID int `json:"id"`
}

// BroadcastTopic is a topic definition referenced by a broadcast,
// optionally bound to a campaign.
type BroadcastTopic struct {
	ID       string       `json:"id"`
	Campaign *CampaignRef `json:"campaign,omitempty"`
}

// Broadcast is a campaign-triggered outbound message definition.
// Read-only to this service; fetched from the content API.
type Broadcast struct {
	ID           string          `json:"id"`
	Type         BroadcastType   `json:"type"`
	Text         string          `json:"text"`
	Topic        *BroadcastTopic `json:"topic,omitempty"`
	SaidYesTopic *BroadcastTopic `json:"saidYesTopic,omitempty"`
	Attachments  []Attachment    `json:"attachments,omitempty"`
}

// Campaign metadata, fetched from the content API.
type Campaign struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	IsClosed bool   `json:"is_closed"`
}

// SMS subscription status values reported by the user service.
const (
	SMSStatusActive        = "active"
	SMSStatusLess          = "less"
	SMSStatusUndeliverable = "undeliverable"
)

// User is the profile fetched from the user service.
type User struct {
	ID        string `json:"id"`
	Mobile    string `json:"mobile,omitempty"`
	Email     string `json:"email,omitempty"`
	SMSStatus string `json:"sms_status,omitempty"`
}

// Deliverable reports whether the user can receive outbound SMS.
func (u *User) Deliverable() bool {
	return u.Mobile != "" && u.SMSStatus != SMSStatusUndeliverable
}

// OracleReply is the dialogue engine's answer for an inbound message.
type OracleReply struct {
	Text  string `json:"text"`
	Match string `json:"match,omitempty"`
	Topic Topic  `json:"topic,omitempty"`
}
