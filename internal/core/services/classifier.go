package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// Decision is the accepted outcome of classifying a broadcast: the topic
// and message payload the pipeline should apply downstream. Classification
// never mutates the conversation itself.
type Decision struct {
	Topic       domain.Topic
	Text        string
	Template    string
	Attachments []domain.Attachment

	// BroadcastAsTopic is set when the broadcast defines no topic of its
	// own (askYesNo). The original system stored the broadcast itself as
	// the topic value in that case; we carry the broadcast id as the
	// topic and flag it so downstream consumers can tell the two apart.
	BroadcastAsTopic bool
}

// Classifier inspects a broadcast definition, determines its variant and
// enforces campaign-closed gating. Campaign lookups go through the reply
// cache to avoid repeat upstream calls.
type Classifier struct {
	content  ports.ContentService
	cache    ports.ReplyCache
	cacheTTL time.Duration
}

// NewClassifier creates a broadcast classifier.
func NewClassifier(content ports.ContentService, cache ports.ReplyCache, cacheTTL time.Duration) *Classifier {
	return &Classifier{content: content, cache: cache, cacheTTL: cacheTTL}
}

// Classify decides whether the broadcast may be delivered and, if so,
// what topic/text/template/attachments to apply.
//
// Policy, in order:
//  1. legacy broadcasts are never processed.
//  2. askYesNo is gated on the campaign bound to its saidYesTopic.
//  3. askVotingPlanStatus, or any type without a topic reference, is
//     accepted unconditionally.
//  4. any other type with a topic is gated on that topic's campaign.
func (c *Classifier) Classify(ctx context.Context, broadcast *domain.Broadcast) (*Decision, error) {
	switch {
	case broadcast.Type == domain.BroadcastTypeLegacy:
		return nil, domain.NewPolicyError(fmt.Sprintf("broadcast %s is a legacy type and cannot be sent", broadcast.ID))

	case broadcast.Type == domain.BroadcastTypeAskYesNo:
		closed, err := c.hasClosedCampaign(ctx, broadcast.SaidYesTopic)
		if err != nil {
			return nil, err
		}
		if closed {
			return nil, domain.NewPolicyError(fmt.Sprintf("broadcast %s saidYes campaign is closed", broadcast.ID))
		}

	case broadcast.Topic == nil:
		// askVotingPlanStatus and friends: nothing to gate on.

	default:
		closed, err := c.hasClosedCampaign(ctx, broadcast.Topic)
		if err != nil {
			return nil, err
		}
		if closed {
			return nil, domain.NewPolicyError(fmt.Sprintf("broadcast %s campaign is closed", broadcast.ID))
		}
	}

	decision := &Decision{
		Text:        broadcast.Text,
		Template:    string(broadcast.Type),
		Attachments: broadcast.Attachments,
	}
	if broadcast.Topic != nil && broadcast.Topic.ID != "" {
		decision.Topic = domain.Topic(broadcast.Topic.ID)
	} else {
		decision.Topic = domain.Topic(broadcast.ID)
		decision.BroadcastAsTopic = true
	}

	slog.Debug("broadcast classified",
		"broadcast_id", broadcast.ID,
		"type", broadcast.Type,
		"topic", decision.Topic,
		"broadcast_as_topic", decision.BroadcastAsTopic,
	)

	return decision, nil
}

// FetchBroadcast is the read-through broadcast lookup: on a cache miss
// it fetches upstream, writes through, and uses the fetched value
// directly.
func (c *Classifier) FetchBroadcast(ctx context.Context, id string) (*domain.Broadcast, error) {
	key := broadcastCacheKey(id)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, domain.NewUpstreamError("broadcast cache read", err)
	}
	if ok {
		var broadcast domain.Broadcast
		if err := json.Unmarshal(cached, &broadcast); err == nil {
			return &broadcast, nil
		}
		slog.Warn("discarding undecodable broadcast cache entry", "key", key)
	}

	broadcast, err := c.content.FetchBroadcastByID(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(broadcast)
	if err == nil {
		if _, err := c.cache.Set(ctx, key, encoded, c.cacheTTL); err != nil {
			slog.Warn("broadcast cache write failed", "key", key, "error", err)
		}
	}

	return broadcast, nil
}

// hasClosedCampaign reports whether the topic is bound to a closed
// campaign. Topics without a campaign reference are never closed.
func (c *Classifier) hasClosedCampaign(ctx context.Context, topic *domain.BroadcastTopic) (bool, error) {
	if topic == nil || topic.Campaign == nil {
		return false, nil
	}

	campaign, err := c.fetchCampaign(ctx, topic.Campaign.ID)
	if err != nil {
		return false, err
	}
	return campaign.IsClosed, nil
}

// fetchCampaign is the read-through campaign lookup: on a cache miss it
// fetches upstream, writes through, and uses the fetched value directly.
func (c *Classifier) fetchCampaign(ctx context.Context, id int) (*domain.Campaign, error) {
	key := campaignCacheKey(id)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, domain.NewUpstreamError("campaign cache read", err)
	}
	if ok {
		var campaign domain.Campaign
		if err := json.Unmarshal(cached, &campaign); err == nil {
			return &campaign, nil
		}
		// Undecodable entries fall through to a fresh fetch.
		slog.Warn("discarding undecodable campaign cache entry", "key", key)
	}

	campaign, err := c.content.FetchCampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(campaign)
	if err == nil {
		if _, err := c.cache.Set(ctx, key, encoded, c.cacheTTL); err != nil {
			// The cache is advisory; a write failure only costs a
			// future upstream call.
			slog.Warn("campaign cache write failed", "key", key, "error", err)
		}
	}

	return campaign, nil
}

func campaignCacheKey(id int) string {
	return fmt.Sprintf("campaigns:%d", id)
}

func broadcastCacheKey(id string) string {
	return "broadcasts:" + id
}
