package ports

import (
	"context"

	"campaign-chat/internal/core/domain"
)

// UserService is the external user-profile service.
type UserService interface {
	FetchByID(ctx context.Context, id string) (*domain.User, error)
	FetchByMobile(ctx context.Context, mobile string) (*domain.User, error)
	FetchByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateSMSStatus(ctx context.Context, id string, status string) error
}

// ContentService serves campaign and broadcast metadata.
type ContentService interface {
	FetchBroadcastByID(ctx context.Context, id string) (*domain.Broadcast, error)
	FetchCampaignByID(ctx context.Context, id int) (*domain.Campaign, error)
}

// ReplyOracle is the scripted-dialogue engine, treated as a black box:
// given a conversation and inbound text it returns reply text, match
// metadata, and possibly a topic to transition to. Reply text equal to
// a macro name is a command, not copy.
type ReplyOracle interface {
	Reply(ctx context.Context, conversation *domain.Conversation, text string) (*domain.OracleReply, error)
}

// MessageSender posts outbound text to the messaging carrier.
type MessageSender interface {
	// Send delivers text to the address and returns the carrier-side
	// message id.
	Send(ctx context.Context, to string, text string) (platformMessageID string, err error)
}

// TemplateRenderer substitutes tag variables into outbound copy before
// it is stored. Inbound text is never rendered.
type TemplateRenderer interface {
	Render(text string, vars map[string]string) (string, error)
}
