// Package catalog holds the static registry of nurture sequences. Sequences
// are fixed at startup; the only runtime mutation is the Active toggle.
package catalog

import (
	"sync"

	"crm_automation_backend/internal/sequences/domain"
)

// Sequence identifiers.
const (
	SeqNewLeadWelcome   = "seq-new-lead-welcome"
	SeqProposalFollowup = "seq-proposal-followup"
	SeqColdReengage     = "seq-cold-reengage"
	SeqWonOnboarding    = "seq-won-onboarding"
	SeqLostWinback      = "seq-lost-winback"
)

const conditionNotHot = "not_hot"

// Catalog is the sequence registry. Reads dominate; the lock only guards
// the Active flag against concurrent toggles.
type Catalog struct {
	mu        sync.RWMutex
	sequences []domain.Sequence
	byID      map[string]*domain.Sequence
}

// New builds the catalog with all built-in sequences active.
func New() *Catalog {
	sequences := []domain.Sequence{
		{
			ID:      SeqNewLeadWelcome,
			Name:    "New lead welcome",
			Trigger: domain.TriggerNewLead,
			Active:  true,
			Steps: []domain.Step{
				{TemplateType: domain.TemplateWelcome, DelayHours: 0},
				{TemplateType: domain.TemplateFollowUp, DelayHours: 24},
				{TemplateType: domain.TemplateValueProp, DelayHours: 72, Condition: domain.NotHot, ConditionName: conditionNotHot},
				{TemplateType: domain.TemplateCheckIn, DelayHours: 168},
			},
		},
		{
			ID:      SeqProposalFollowup,
			Name:    "Proposal follow-up",
			Trigger: domain.TriggerProposalSent,
			Active:  true,
			Steps: []domain.Step{
				{TemplateType: domain.TemplateProposalFollowUp, DelayHours: 48},
				{TemplateType: domain.TemplateProposalCheckIn, DelayHours: 120},
				{TemplateType: domain.TemplateProposalNudge, DelayHours: 240},
			},
		},
		{
			ID:      SeqColdReengage,
			Name:    "Cold lead re-engagement",
			Trigger: domain.TriggerColdLead,
			Active:  true,
			Steps: []domain.Step{
				{TemplateType: domain.TemplateReengage, DelayHours: 0, Condition: domain.NotHot, ConditionName: conditionNotHot},
				{TemplateType: domain.TemplateSecondTouch, DelayHours: 336},
			},
		},
		{
			ID:      SeqWonOnboarding,
			Name:    "Won deal onboarding",
			Trigger: domain.TriggerWonDeal,
			Active:  true,
			Steps: []domain.Step{
				{TemplateType: domain.TemplateThankYou, DelayHours: 0},
				{TemplateType: domain.TemplateReferralAsk, DelayHours: 720},
			},
		},
		{
			ID:      SeqLostWinback,
			Name:    "Lost deal win-back",
			Trigger: domain.TriggerLostDeal,
			Active:  true,
			Steps: []domain.Step{
				{TemplateType: domain.TemplateFeedback, DelayHours: 48},
				{TemplateType: domain.TemplateWinBack, DelayHours: 2160, Condition: domain.NotHot, ConditionName: conditionNotHot},
			},
		},
	}

	byID := make(map[string]*domain.Sequence, len(sequences))
	for i := range sequences {
		byID[sequences[i].ID] = &sequences[i]
	}
	return &Catalog{sequences: sequences, byID: byID}
}

// ByID looks up a sequence regardless of its active flag.
func (c *Catalog) ByID(id string) (domain.Sequence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seq, ok := c.byID[id]
	if !ok {
		return domain.Sequence{}, false
	}
	return *seq, true
}

// ByTrigger returns the active sequences fired by a trigger.
func (c *Catalog) ByTrigger(trigger string) []domain.Sequence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Sequence
	for _, seq := range c.sequences {
		if seq.Active && seq.Trigger == trigger {
			out = append(out, seq)
		}
	}
	return out
}

// All returns every sequence including inactive ones.
func (c *Catalog) All() []domain.Sequence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Sequence, len(c.sequences))
	copy(out, c.sequences)
	return out
}

// SetActive toggles a sequence's active flag. Returns false for unknown IDs.
func (c *Catalog) SetActive(id string, active bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq, ok := c.byID[id]
	if !ok {
		return false
	}
	seq.Active = active
	return true
}
