// Package dto defines the inbound event payload shapes
// Following Hexagonal Architecture: DTOs translate wire formats to domain inputs
package dto

import (
	"encoding/json"
	"fmt"
	"net/url"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/services"
)

// Origin discriminators for the inbound entry point.
const (
	OriginBroadcastLite = "broadcastLite"
	OriginSignup        = "signup"
	OriginTwilio        = "twilio"
	OriginSlack         = "slack"
)

// BroadcastLiteEvent is the broadcast-trigger payload posted by the
// campaign scheduler.
type BroadcastLiteEvent struct {
	UserID      string `json:"userId"`
	BroadcastID string `json:"broadcastId"`
	Mobile      string `json:"mobile"`
}

// ParseBroadcastLiteEvent decodes a broadcast-trigger body into a
// pipeline context. Field presence is validated by the pipeline itself,
// before any upstream call.
func ParseBroadcastLiteEvent(body []byte) (*services.PipelineContext, error) {
	var event BroadcastLiteEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode broadcast trigger: %w", err)
	}

	return &services.PipelineContext{
		Origin:      OriginBroadcastLite,
		Platform:    domain.PlatformSMS,
		UserID:      event.UserID,
		BroadcastID: event.BroadcastID,
		Mobile:      event.Mobile,
	}, nil
}

// SignupEvent is the web-signup confirmation payload posted when a
// member signs up for a campaign on the website.
type SignupEvent struct {
	UserID     string `json:"userId"`
	CampaignID int    `json:"campaignId"`
}

// ParseSignupEvent decodes a signup confirmation body into a pipeline
// context. Field presence is validated by the pipeline itself.
func ParseSignupEvent(body []byte) (*services.PipelineContext, error) {
	var event SignupEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode signup confirmation: %w", err)
	}

	return &services.PipelineContext{
		Origin:     OriginSignup,
		Platform:   domain.PlatformSMS,
		UserID:     event.UserID,
		CampaignID: event.CampaignID,
	}, nil
}

// TwilioInboundEvent is the carrier's webhook shape for an inbound SMS.
// Twilio posts form-encoded bodies.
type TwilioInboundEvent struct {
	MessageSid string
	From       string
	Body       string
	NumMedia   int
	MediaURLs  []string
	MediaTypes []string
}

// ParseTwilioInboundEvent decodes a carrier webhook form body into a
// pipeline context. Media items land in the inbound attachment bucket.
func ParseTwilioInboundEvent(form url.Values) (*services.PipelineContext, error) {
	from := form.Get("From")
	if from == "" {
		// Leave rejection to the pipeline's validation stage; just
		// normalize when we can.
		return newTwilioContext(form, from), nil
	}

	mobile, err := domain.NormalizeMobile(from)
	if err != nil {
		return nil, fmt.Errorf("parse sender address %q: %w", from, err)
	}

	return newTwilioContext(form, mobile), nil
}

func newTwilioContext(form url.Values, sender string) *services.PipelineContext {
	pc := &services.PipelineContext{
		Origin:            OriginTwilio,
		Platform:          domain.PlatformSMS,
		PlatformUserID:    sender,
		InboundText:       form.Get("Body"),
		PlatformMessageID: form.Get("MessageSid"),
	}

	if sid := form.Get("MessagingServiceSid"); sid != "" {
		pc.Metadata = map[string]string{"messagingServiceSid": sid}
	}

	for i := 0; ; i++ {
		mediaURL := form.Get(fmt.Sprintf("MediaUrl%d", i))
		if mediaURL == "" {
			break
		}
		pc.Attachments.Inbound = append(pc.Attachments.Inbound, domain.Attachment{
			URL:         mediaURL,
			ContentType: form.Get(fmt.Sprintf("MediaContentType%d", i)),
		})
	}

	return pc
}
