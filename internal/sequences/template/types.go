package template

import (
	"fmt"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/sequences/domain"
)

// registered lists every template implementation. Adding a catalog step with
// a new template type requires adding its implementation here; the registry
// test cross-checks this list against the catalog.
var registered = []Template{
	welcome{},
	followUp{},
	valueProp{},
	checkIn{},
	proposalFollowUp{},
	proposalCheckIn{},
	proposalNudge{},
	reengage{},
	secondTouch{},
	thankYou{},
	referralAsk{},
	feedback{},
	winBack{},
}

func greetName(c crmdomain.Contact) string {
	if c.FirstName != "" {
		return c.FirstName
	}
	return "there"
}

type welcome struct{}

func (welcome) Type() domain.TemplateType { return domain.TemplateWelcome }
func (welcome) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("Welcome, %s!", greetName(c))
}

type followUp struct{}

func (followUp) Type() domain.TemplateType { return domain.TemplateFollowUp }
func (followUp) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("%s, any questions so far?", greetName(c))
}

type valueProp struct{}

func (valueProp) Type() domain.TemplateType { return domain.TemplateValueProp }
func (valueProp) Subject(c crmdomain.Contact) string {
	return "How we help teams like yours"
}

type checkIn struct{}

func (checkIn) Type() domain.TemplateType { return domain.TemplateCheckIn }
func (checkIn) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("Checking in, %s", greetName(c))
}

type proposalFollowUp struct{}

func (proposalFollowUp) Type() domain.TemplateType { return domain.TemplateProposalFollowUp }
func (proposalFollowUp) Subject(c crmdomain.Contact) string {
	return "Your proposal: questions welcome"
}

type proposalCheckIn struct{}

func (proposalCheckIn) Type() domain.TemplateType { return domain.TemplateProposalCheckIn }
func (proposalCheckIn) Subject(c crmdomain.Contact) string {
	return "Still reviewing the proposal?"
}

type proposalNudge struct{}

func (proposalNudge) Type() domain.TemplateType { return domain.TemplateProposalNudge }
func (proposalNudge) Subject(c crmdomain.Contact) string {
	return "Last call on your proposal"
}

type reengage struct{}

func (reengage) Type() domain.TemplateType { return domain.TemplateReengage }
func (reengage) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("We miss you, %s", greetName(c))
}

type secondTouch struct{}

func (secondTouch) Type() domain.TemplateType { return domain.TemplateSecondTouch }
func (secondTouch) Subject(c crmdomain.Contact) string {
	return "A quick update from our team"
}

type thankYou struct{}

func (thankYou) Type() domain.TemplateType { return domain.TemplateThankYou }
func (thankYou) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("Thank you, %s!", greetName(c))
}

type referralAsk struct{}

func (referralAsk) Type() domain.TemplateType { return domain.TemplateReferralAsk }
func (referralAsk) Subject(c crmdomain.Contact) string {
	return "Know someone we could help?"
}

type feedback struct{}

func (feedback) Type() domain.TemplateType { return domain.TemplateFeedback }
func (feedback) Subject(c crmdomain.Contact) string {
	return "We'd value your feedback"
}

type winBack struct{}

func (winBack) Type() domain.TemplateType { return domain.TemplateWinBack }
func (winBack) Subject(c crmdomain.Contact) string {
	return fmt.Sprintf("%s, let's take another look", greetName(c))
}
