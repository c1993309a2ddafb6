package domain

// Macro is a command embedded in dialogue-oracle output instructing the
// pipeline to perform a side effect instead of (or alongside) a reply.
type Macro string

const (
	MacroConfirmedCampaign      Macro = "confirmedCampaign"
	MacroDeclinedCampaign       Macro = "declinedCampaign"
	MacroGambit                 Macro = "gambit"
	MacroSupportRequested       Macro = "supportRequested"
	MacroSubscriptionStatusLess Macro = "subscriptionStatusLess"
	MacroSubscriptionStatusStop Macro = "subscriptionStatusStop"
)

var macros = map[Macro]bool{
	MacroConfirmedCampaign:      true,
	MacroDeclinedCampaign:       true,
	MacroGambit:                 true,
	MacroSupportRequested:       true,
	MacroSubscriptionStatusLess: true,
	MacroSubscriptionStatusStop: true,
}

// ParseMacro reports whether the oracle reply text is a macro command
// rather than user-facing copy.
func ParseMacro(text string) (Macro, bool) {
	m := Macro(text)
	return m, macros[m]
}

// Canned reply texts keyed by template name. TemplateNoReply is the empty
// string on purpose: an empty rendered text is a valid no-reply outcome
// and suppresses the dispatch call.
const (
	TemplateNoCampaign    = "noCampaign"
	TemplateNoReply       = "noReply"
	TemplateDialogueReply = "dialogue"
	TemplateWebSignup     = "webSignup"

	TextNoCampaign             = "Sorry, I'm not sure how to respond to that.\n\nSay MENU to find a Campaign to join."
	TextNoReply                = ""
	TextConfirmedCampaign      = "Great! You're signed up. We'll be in touch with next steps."
	TextDeclinedCampaign       = "OK! Text MENU if you change your mind."
	TextSupportRequested       = "Got it, connecting you with a person now. Hold tight."
	TextSubscriptionStatusLess = "Sure, we'll only message you once a month."
	TextSubscriptionStatusStop = "You've been unsubscribed."
	TextWebSignup              = "Thanks for signing up for {{campaign.title}}! We'll text you next steps."
)
