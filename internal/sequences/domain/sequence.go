// Package domain contains the core sequence types: triggers, steps,
// sequences and enrollments.
package domain

import (
	crmdomain "crm_automation_backend/internal/crm/domain"
)

// Trigger identifies the business event that auto-enrolls a contact.
const (
	TriggerNewLead      = "new_lead"
	TriggerProposalSent = "proposal_sent"
	TriggerColdLead     = "cold_lead"
	TriggerWonDeal      = "won_deal"
	TriggerLostDeal     = "lost_deal"
)

// TemplateType names the message rendered by a sequence step.
type TemplateType string

const (
	TemplateWelcome          TemplateType = "welcome"
	TemplateFollowUp         TemplateType = "follow_up"
	TemplateValueProp        TemplateType = "value_prop"
	TemplateCheckIn          TemplateType = "check_in"
	TemplateProposalFollowUp TemplateType = "proposal_follow_up"
	TemplateProposalCheckIn  TemplateType = "proposal_check_in"
	TemplateProposalNudge    TemplateType = "proposal_nudge"
	TemplateReengage         TemplateType = "reengage"
	TemplateSecondTouch      TemplateType = "second_touch"
	TemplateThankYou         TemplateType = "thank_you"
	TemplateReferralAsk      TemplateType = "referral_ask"
	TemplateFeedback         TemplateType = "feedback"
	TemplateWinBack          TemplateType = "win_back"
)

// Condition decides whether a step should actually send for a contact.
// A false result skips the send but still advances the enrollment.
type Condition func(contact crmdomain.Contact) bool

// NotHot suppresses nurture messages for contacts that are already hot;
// a sales rep should be talking to them instead.
func NotHot(contact crmdomain.Contact) bool {
	return contact.LeadTemperature != crmdomain.TemperatureHot
}

// Step is one message in a sequence. DelayHours is measured from the
// enrollment's StartedAt, not from the previous step.
type Step struct {
	TemplateType TemplateType
	DelayHours   int
	// Condition is optional. Nil means the step always sends.
	Condition Condition
	// ConditionName identifies the predicate for logging and listings.
	ConditionName string
}

// Sequence is an ordered set of steps fired by a trigger.
type Sequence struct {
	ID      string
	Name    string
	Trigger string
	Steps   []Step
	Active  bool
}
