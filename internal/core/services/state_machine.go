// Package services contains core business logic
// Following Hexagonal Architecture: Services orchestrate domain logic using ports
package services

import (
	"context"
	"log/slog"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// StateMachine owns the topic/paused/campaign/signup transitions of a
// conversation. Every operation persists through the injected repository
// and surfaces persistence failures to the caller; none of them swallow
// errors.
type StateMachine struct {
	conversations ports.ConversationRepository
}

// NewStateMachine creates a state machine persisting via the given repository.
func NewStateMachine(conversations ports.ConversationRepository) *StateMachine {
	return &StateMachine{conversations: conversations}
}

// SetTopic transitions the conversation to newTopic.
//
// Entering support from any other topic pauses the conversation; leaving
// support unpauses it. All other transitions leave paused unchanged.
// Setting the current topic again is a persistence-only save.
func (m *StateMachine) SetTopic(ctx context.Context, conversation *domain.Conversation, newTopic domain.Topic) error {
	if conversation.Topic == newTopic {
		return m.save(ctx, conversation)
	}

	if conversation.Topic == domain.TopicSupport && newTopic != domain.TopicSupport {
		conversation.Paused = false
	}
	if conversation.Topic != domain.TopicSupport && newTopic == domain.TopicSupport {
		conversation.Paused = true
	}

	conversation.Topic = newTopic
	slog.Debug("conversation topic updated",
		"conversation_id", conversation.ID,
		"topic", newTopic,
		"paused", conversation.Paused,
	)

	return m.save(ctx, conversation)
}

// SupportRequested pauses the conversation for a human agent.
func (m *StateMachine) SupportRequested(ctx context.Context, conversation *domain.Conversation) error {
	return m.SetTopic(ctx, conversation, domain.TopicSupport)
}

// SupportResolved returns the conversation to the default topic,
// unpausing it.
func (m *StateMachine) SupportResolved(ctx context.Context, conversation *domain.Conversation) error {
	return m.SetTopic(ctx, conversation, domain.TopicRandom)
}

// SetCampaignWithSignupStatus binds the conversation to a campaign and
// forces the topic to campaign regardless of the previous topic. This is
// what enables campaign dialogue triggers.
func (m *StateMachine) SetCampaignWithSignupStatus(ctx context.Context, conversation *domain.Conversation, campaignID int, status domain.SignupStatus) error {
	conversation.CampaignID = &campaignID
	conversation.SignupStatus = status
	slog.Debug("conversation campaign updated",
		"conversation_id", conversation.ID,
		"campaign_id", campaignID,
		"signup_status", status,
	)

	return m.SetTopic(ctx, conversation, domain.TopicCampaign)
}

// SetCampaign binds the campaign with signup status doing.
func (m *StateMachine) SetCampaign(ctx context.Context, conversation *domain.Conversation, campaignID int) error {
	return m.SetCampaignWithSignupStatus(ctx, conversation, campaignID, domain.SignupStatusDoing)
}

// PromptSignupForCampaign binds the campaign with signup status prompt.
func (m *StateMachine) PromptSignupForCampaign(ctx context.Context, conversation *domain.Conversation, campaignID int) error {
	return m.SetCampaignWithSignupStatus(ctx, conversation, campaignID, domain.SignupStatusPrompt)
}

// DeclineSignup marks the active campaign declined without touching the
// topic or campaign binding.
func (m *StateMachine) DeclineSignup(ctx context.Context, conversation *domain.Conversation) error {
	conversation.SignupStatus = domain.SignupStatusDeclined
	return m.save(ctx, conversation)
}

func (m *StateMachine) save(ctx context.Context, conversation *domain.Conversation) error {
	if err := m.conversations.Save(ctx, conversation); err != nil {
		return domain.NewPersistenceError("save conversation", err)
	}
	return nil
}
