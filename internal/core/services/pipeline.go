package services

import (
	"context"
	"log/slog"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// PipelineContext is the shared mutable state threaded through the
// stages of one pipeline invocation: the in-flight event plus everything
// derived from it so far. Each stage's postcondition is a precondition
// for the next; a stage never leaves the context half-updated.
type PipelineContext struct {
	Origin   string
	Platform string

	// Broadcast-trigger parameters.
	UserID      string
	BroadcastID string
	Mobile      string
	CampaignID  int

	// Carrier-inbound parameters.
	PlatformUserID    string
	InboundText       string
	PlatformMessageID string
	AgentID           string
	Metadata          map[string]string
	Attachments       domain.AttachmentSet

	// Derived along the way.
	Broadcast        *domain.Broadcast
	Campaign         *domain.Campaign
	Decision         *Decision
	User             *domain.User
	Conversation     *domain.Conversation
	Topic            domain.Topic
	OutboundText     string
	OutboundTemplate string
	Match            string
	Macro            domain.Macro

	InboundMessage  *domain.Message
	OutboundMessage *domain.Message
}

// TemplateVars exposes the request values outbound copy may reference.
func (pc *PipelineContext) TemplateVars() map[string]string {
	vars := map[string]string{}
	if pc.User != nil {
		vars["user.id"] = pc.User.ID
	}
	if pc.Broadcast != nil {
		vars["broadcast.id"] = pc.Broadcast.ID
	}
	if pc.Campaign != nil {
		vars["campaign.title"] = pc.Campaign.Title
	}
	return vars
}

// Stage is one step of a pipeline. A nil return means continue; a non-nil
// return is a terminal, classified outcome for the whole invocation.
// Stages never retry internally.
type Stage struct {
	Name string
	Run  func(ctx context.Context, pc *PipelineContext) error
}

// Pipeline runs a fixed ordered sequence of stages over a shared context,
// short-circuiting on the first error.
type Pipeline struct {
	name   string
	stages []Stage
}

// NewPipeline creates a named pipeline from the given stages.
func NewPipeline(name string, stages ...Stage) *Pipeline {
	return &Pipeline{name: name, stages: stages}
}

// Run executes the stages in order. The returned error, if any, is
// already classified (see domain.ErrorKind).
func (p *Pipeline) Run(ctx context.Context, pc *PipelineContext) error {
	for _, stage := range p.stages {
		if err := stage.Run(ctx, pc); err != nil {
			slog.Warn("pipeline terminated",
				"pipeline", p.name,
				"stage", stage.Name,
				"kind", domain.KindOf(err),
				"error", err,
			)
			return err
		}
	}

	slog.Info("pipeline completed", "pipeline", p.name)
	return nil
}

// Processor owns the two inbound entry points: broadcast triggers and
// carrier-inbound member messages. It wires the state machine, the
// classifier, and the message factory into ordered stage sequences.
type Processor struct {
	state      *StateMachine
	classifier *Classifier
	factory    *MessageFactory

	conversations ports.ConversationRepository
	messages      ports.MessageRepository
	users         ports.UserService
	content       ports.ContentService
	oracle        ports.ReplyOracle
	sender        ports.MessageSender
}

// NewProcessor creates the message processor with all collaborators injected.
func NewProcessor(
	state *StateMachine,
	classifier *Classifier,
	factory *MessageFactory,
	conversations ports.ConversationRepository,
	messages ports.MessageRepository,
	users ports.UserService,
	content ports.ContentService,
	oracle ports.ReplyOracle,
	sender ports.MessageSender,
) *Processor {
	return &Processor{
		state:         state,
		classifier:    classifier,
		factory:       factory,
		conversations: conversations,
		messages:      messages,
		users:         users,
		content:       content,
		oracle:        oracle,
		sender:        sender,
	}
}

// ProcessBroadcast handles a broadcast-trigger event: fetch and classify
// the broadcast, resolve the user, apply the topic decision, create one
// outbound message, and dispatch it.
func (p *Processor) ProcessBroadcast(ctx context.Context, pc *PipelineContext) error {
	pipeline := NewPipeline("broadcast",
		Stage{"params", p.stageValidateBroadcastParams},
		Stage{"broadcast-get", p.stageGetBroadcast},
		Stage{"broadcast-classify", p.stageClassifyBroadcast},
		Stage{"user-get", p.stageGetUser},
		Stage{"outbound-validate", p.stageValidateDeliverable},
		Stage{"conversation-get-or-create", p.stageGetOrCreateConversation},
		Stage{"conversation-update", p.stageUpdateConversation},
		Stage{"outbound-load", p.stageLoadOutboundMessage},
		Stage{"outbound-create", p.stageCreateOutboundMessage},
		Stage{"outbound-send", p.stageSendOutboundMessage},
	)
	return pipeline.Run(ctx, pc)
}

// ProcessInbound handles a carrier-inbound member message: persist the
// inbound message verbatim, consult the reply oracle, interpret any
// macro, update the topic, then create and dispatch the reply.
func (p *Processor) ProcessInbound(ctx context.Context, pc *PipelineContext) error {
	pipeline := NewPipeline("member",
		Stage{"params", p.stageValidateInboundParams},
		Stage{"user-get-or-create", p.stageGetOrCreateUser},
		Stage{"conversation-get-or-create", p.stageGetOrCreateConversation},
		Stage{"inbound-create", p.stageCreateInboundMessage},
		Stage{"reply-get", p.stageGetOracleReply},
		Stage{"macro", p.stageInterpretMacro},
		Stage{"topic-update", p.stageUpdateReplyTopic},
		Stage{"outbound-create", p.stageCreateOutboundReply},
		Stage{"outbound-send", p.stageSendOutboundMessage},
	)
	return pipeline.Run(ctx, pc)
}

// ProcessSignup handles a web-signup confirmation: resolve the user,
// bind the campaign with signup status prompt, and text the signup
// confirmation.
func (p *Processor) ProcessSignup(ctx context.Context, pc *PipelineContext) error {
	pipeline := NewPipeline("signup",
		Stage{"params", p.stageValidateSignupParams},
		Stage{"user-get", p.stageGetUser},
		Stage{"outbound-validate", p.stageValidateDeliverable},
		Stage{"address-resolve", p.stageResolveSignupAddress},
		Stage{"conversation-get-or-create", p.stageGetOrCreateConversation},
		Stage{"conversation-update", p.stageUpdateConversation},
		Stage{"outbound-load", p.stageLoadOutboundMessage},
		Stage{"outbound-create", p.stageCreateOutboundMessage},
		Stage{"outbound-send", p.stageSendOutboundMessage},
	)
	return pipeline.Run(ctx, pc)
}

// ----------------------------------------------------------------------------
// Broadcast stages
// ----------------------------------------------------------------------------

// stageValidateBroadcastParams rejects malformed trigger payloads before
// any upstream call is made.
func (p *Processor) stageValidateBroadcastParams(_ context.Context, pc *PipelineContext) error {
	if pc.UserID == "" {
		return domain.NewValidationError("missing required userId")
	}
	if pc.BroadcastID == "" {
		return domain.NewValidationError("missing required broadcastId")
	}
	if pc.Mobile == "" {
		return domain.NewValidationError("missing required mobile")
	}

	mobile, err := domain.NormalizeMobile(pc.Mobile)
	if err != nil {
		return domain.NewValidationError("cannot parse mobile: " + pc.Mobile)
	}
	pc.Mobile = mobile

	if pc.Platform == "" {
		pc.Platform = domain.PlatformSMS
	}
	pc.PlatformUserID = mobile

	return nil
}

func (p *Processor) stageGetBroadcast(ctx context.Context, pc *PipelineContext) error {
	broadcast, err := p.classifier.FetchBroadcast(ctx, pc.BroadcastID)
	if err != nil {
		return err
	}
	pc.Broadcast = broadcast
	return nil
}

// stageClassifyBroadcast applies the classification decision to the
// context for the downstream stages. The conversation itself is not
// touched here.
func (p *Processor) stageClassifyBroadcast(ctx context.Context, pc *PipelineContext) error {
	decision, err := p.classifier.Classify(ctx, pc.Broadcast)
	if err != nil {
		return err
	}

	pc.Decision = decision
	pc.Topic = decision.Topic
	pc.OutboundText = decision.Text
	pc.OutboundTemplate = decision.Template
	pc.Attachments.Outbound = append(pc.Attachments.Outbound, decision.Attachments...)

	return nil
}

func (p *Processor) stageGetUser(ctx context.Context, pc *PipelineContext) error {
	user, err := p.users.FetchByID(ctx, pc.UserID)
	if err != nil {
		return err
	}
	pc.User = user
	return nil
}

// stageValidateDeliverable refuses to build an outbound message for a
// user who cannot receive it.
func (p *Processor) stageValidateDeliverable(_ context.Context, pc *PipelineContext) error {
	if !pc.User.Deliverable() {
		return domain.NewPolicyError("user " + pc.User.ID + " is not deliverable")
	}
	return nil
}

func (p *Processor) stageGetOrCreateConversation(ctx context.Context, pc *PipelineContext) error {
	conversation, err := p.conversations.GetByPlatformUserID(ctx, pc.PlatformUserID)
	if err != nil {
		return domain.NewPersistenceError("load conversation", err)
	}

	if conversation == nil {
		conversation = domain.NewConversation(pc.Platform, pc.PlatformUserID)
		if err := p.conversations.Create(ctx, conversation); err != nil {
			return domain.NewPersistenceError("create conversation", err)
		}
		slog.Info("conversation created",
			"conversation_id", conversation.ID,
			"platform", conversation.Platform,
		)
	}

	pc.Conversation = conversation
	return nil
}

// stageUpdateConversation applies the topic or campaign decision through
// the state machine. One of the two must have been decided upstream.
func (p *Processor) stageUpdateConversation(ctx context.Context, pc *PipelineContext) error {
	if pc.Topic != "" {
		return p.state.SetTopic(ctx, pc.Conversation, pc.Topic)
	}

	if pc.CampaignID != 0 {
		campaign, err := p.content.FetchCampaignByID(ctx, pc.CampaignID)
		if err != nil {
			return err
		}
		if campaign.IsClosed {
			return domain.NewPolicyError("campaign " + campaign.Title + " is closed")
		}
		pc.Campaign = campaign
		return p.state.PromptSignupForCampaign(ctx, pc.Conversation, campaign.ID)
	}

	return domain.NewValidationError("neither topic nor campaignId decided for conversation update")
}

func (p *Processor) stageLoadOutboundMessage(_ context.Context, pc *PipelineContext) error {
	if pc.OutboundTemplate == "" {
		return domain.NewValidationError("no outbound template decided")
	}
	return nil
}

func (p *Processor) stageCreateOutboundMessage(ctx context.Context, pc *PipelineContext) error {
	msg, err := p.factory.CreateAndSetLastOutbound(ctx, pc.Conversation, domain.DirectionOutboundAPISend, pc.OutboundText, pc.OutboundTemplate, pc)
	if err != nil {
		return err
	}
	pc.OutboundMessage = msg
	return nil
}

// stageSendOutboundMessage dispatches the rendered text to the carrier.
// An empty text is a valid no-reply outcome and skips the call; non-sms
// platforms never post to the carrier.
func (p *Processor) stageSendOutboundMessage(ctx context.Context, pc *PipelineContext) error {
	if pc.OutboundMessage == nil || pc.OutboundMessage.Text == "" {
		return nil
	}
	if pc.Conversation.Platform != domain.PlatformSMS {
		return nil
	}

	platformMessageID, err := p.sender.Send(ctx, pc.Conversation.PlatformUserID, pc.OutboundMessage.Text)
	if err != nil {
		return domain.NewUpstreamError("dispatch outbound message", err)
	}

	if err := p.messages.SetPlatformMessageID(ctx, pc.OutboundMessage.ID, platformMessageID); err != nil {
		return domain.NewPersistenceError("set platform message id", err)
	}
	pc.OutboundMessage.PlatformMessageID = &platformMessageID

	slog.Info("outbound message dispatched",
		"message_id", pc.OutboundMessage.ID,
		"platform_message_id", platformMessageID,
	)
	return nil
}

// ----------------------------------------------------------------------------
// Signup stages
// ----------------------------------------------------------------------------

// stageValidateSignupParams rejects malformed signup confirmations and
// fixes the confirmation copy before any upstream call is made.
func (p *Processor) stageValidateSignupParams(_ context.Context, pc *PipelineContext) error {
	if pc.UserID == "" {
		return domain.NewValidationError("missing required userId")
	}
	if pc.CampaignID == 0 {
		return domain.NewValidationError("missing required campaignId")
	}

	pc.Platform = domain.PlatformSMS
	pc.OutboundText = domain.TextWebSignup
	pc.OutboundTemplate = domain.TemplateWebSignup

	return nil
}

// stageResolveSignupAddress derives the conversation address from the
// fetched user profile; signup confirmations carry no mobile of their own.
func (p *Processor) stageResolveSignupAddress(_ context.Context, pc *PipelineContext) error {
	pc.PlatformUserID = pc.User.Mobile
	return nil
}

// ----------------------------------------------------------------------------
// Member (carrier-inbound) stages
// ----------------------------------------------------------------------------

func (p *Processor) stageValidateInboundParams(_ context.Context, pc *PipelineContext) error {
	if pc.PlatformUserID == "" {
		return domain.NewValidationError("missing sender address")
	}
	if pc.Platform == "" {
		pc.Platform = domain.PlatformSMS
	}
	return nil
}

// stageGetOrCreateUser resolves the user by the platform address, creating
// a profile upstream if none exists yet.
func (p *Processor) stageGetOrCreateUser(ctx context.Context, pc *PipelineContext) error {
	var (
		user *domain.User
		err  error
	)
	if pc.Platform == domain.PlatformSlack {
		user, err = p.users.FetchByEmail(ctx, pc.PlatformUserID)
	} else {
		user, err = p.users.FetchByMobile(ctx, pc.PlatformUserID)
	}

	if domain.IsNotFound(err) {
		newUser := &domain.User{SMSStatus: domain.SMSStatusActive}
		if pc.Platform == domain.PlatformSlack {
			newUser.Email = pc.PlatformUserID
		} else {
			newUser.Mobile = pc.PlatformUserID
		}
		user, err = p.users.Create(ctx, newUser)
	}
	if err != nil {
		return err
	}

	pc.User = user
	return nil
}

func (p *Processor) stageCreateInboundMessage(ctx context.Context, pc *PipelineContext) error {
	msg, err := p.factory.CreateMessage(ctx, pc.Conversation, domain.DirectionInbound, pc.InboundText, "", pc)
	if err != nil {
		return err
	}
	pc.InboundMessage = msg
	return nil
}

// stageGetOracleReply consults the dialogue oracle. Reply text equal to
// a macro name becomes a command for the next stage instead of copy.
func (p *Processor) stageGetOracleReply(ctx context.Context, pc *PipelineContext) error {
	reply, err := p.oracle.Reply(ctx, pc.Conversation, pc.InboundText)
	if err != nil {
		return domain.NewUpstreamError("dialogue reply lookup", err)
	}

	pc.OutboundText = reply.Text
	pc.OutboundTemplate = domain.TemplateDialogueReply
	pc.Match = reply.Match
	if reply.Topic != "" {
		pc.Topic = reply.Topic
	}

	if macro, ok := domain.ParseMacro(reply.Text); ok {
		pc.Macro = macro
		pc.OutboundTemplate = string(macro)
	}

	return nil
}

// stageInterpretMacro performs the side effect a macro commands and
// substitutes the user-facing reply text where one applies.
func (p *Processor) stageInterpretMacro(ctx context.Context, pc *PipelineContext) error {
	switch pc.Macro {
	case "":
		return nil

	case domain.MacroDeclinedCampaign:
		if err := p.state.DeclineSignup(ctx, pc.Conversation); err != nil {
			return err
		}
		pc.OutboundText = domain.TextDeclinedCampaign
		return nil

	case domain.MacroConfirmedCampaign:
		if pc.Conversation.CampaignID == nil {
			pc.OutboundText = domain.TextNoCampaign
			pc.OutboundTemplate = domain.TemplateNoCampaign
			return nil
		}
		if err := p.state.SetCampaign(ctx, pc.Conversation, *pc.Conversation.CampaignID); err != nil {
			return err
		}
		pc.OutboundText = domain.TextConfirmedCampaign
		return nil

	case domain.MacroSupportRequested:
		if err := p.state.SupportRequested(ctx, pc.Conversation); err != nil {
			return err
		}
		pc.OutboundText = domain.TextSupportRequested
		return nil

	case domain.MacroSubscriptionStatusLess:
		if err := p.users.UpdateSMSStatus(ctx, pc.User.ID, domain.SMSStatusLess); err != nil {
			return err
		}
		pc.OutboundText = domain.TextSubscriptionStatusLess
		return nil

	case domain.MacroSubscriptionStatusStop:
		if err := p.users.UpdateSMSStatus(ctx, pc.User.ID, domain.SMSStatusUndeliverable); err != nil {
			return err
		}
		pc.OutboundText = domain.TextSubscriptionStatusStop
		return nil

	case domain.MacroGambit:
		// The dialogue engine owns the campaign-topic reply; nothing is
		// sent from here, and the macro token never reaches the member.
		pc.OutboundText = domain.TextNoReply
		pc.OutboundTemplate = domain.TemplateNoReply
		return nil

	default:
		// An unrecognized macro is delivered as plain copy.
		return nil
	}
}

// stageUpdateReplyTopic applies the oracle's topic decision, if any. A
// reply that names no topic leaves the conversation where it is, support
// included.
func (p *Processor) stageUpdateReplyTopic(ctx context.Context, pc *PipelineContext) error {
	if pc.Topic == "" || pc.Topic == pc.Conversation.Topic {
		return nil
	}
	return p.state.SetTopic(ctx, pc.Conversation, pc.Topic)
}

func (p *Processor) stageCreateOutboundReply(ctx context.Context, pc *PipelineContext) error {
	msg, err := p.factory.CreateAndSetLastOutbound(ctx, pc.Conversation, domain.DirectionOutboundReply, pc.OutboundText, pc.OutboundTemplate, pc)
	if err != nil {
		return err
	}
	pc.OutboundMessage = msg
	return nil
}
