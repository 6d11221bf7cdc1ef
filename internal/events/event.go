// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"crm_automation_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// CRM Domain Events
// =============================================================================

// ContactCreated is published when a new contact is created.
type ContactCreated struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
}

func (e ContactCreated) EventName() string { return "crm.contact.created" }

// InteractionLogged is published when an interaction is recorded for a contact.
type InteractionLogged struct {
	BaseEvent
	ContactID       uuid.UUID `json:"contactId"`
	InteractionID   uuid.UUID `json:"interactionId"`
	InteractionType string    `json:"interactionType"`
	Direction       string    `json:"direction"`
}

func (e InteractionLogged) EventName() string { return "crm.interaction.logged" }

// OpportunityStageChanged is published when an opportunity moves between
// pipeline stages. Sequence triggers for proposal_sent, won_deal and lost_deal
// hang off this event.
type OpportunityStageChanged struct {
	BaseEvent
	ContactID     uuid.UUID `json:"contactId"`
	OpportunityID uuid.UUID `json:"opportunityId"`
	OldStage      string    `json:"oldStage"`
	NewStage      string    `json:"newStage"`
	ValueCents    int64     `json:"valueCents"`
}

func (e OpportunityStageChanged) EventName() string { return "crm.opportunity.stage_changed" }

// LeadScored is published after a score recalculation is persisted.
// AutoActions carries the engine's recommended automated actions so that
// subscribers (e.g. the SMS alert dispatcher) can react without recomputing.
type LeadScored struct {
	BaseEvent
	ContactID   uuid.UUID `json:"contactId"`
	Score       int       `json:"score"`
	Temperature string    `json:"temperature"`
	AutoActions []string  `json:"autoActions,omitempty"`
}

func (e LeadScored) EventName() string { return "crm.lead.scored" }

// ContactWentCold is published by the score refresh job when a previously
// warm or hot contact decays to cold.
type ContactWentCold struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Score     int       `json:"score"`
}

func (e ContactWentCold) EventName() string { return "crm.contact.went_cold" }

// =============================================================================
// Sequence Domain Events
// =============================================================================

// EnrollmentCompleted is published when a contact finishes the last step of
// a sequence.
type EnrollmentCompleted struct {
	BaseEvent
	EnrollmentID string    `json:"enrollmentId"`
	ContactID    uuid.UUID `json:"contactId"`
	SequenceID   string    `json:"sequenceId"`
}

func (e EnrollmentCompleted) EventName() string { return "sequences.enrollment.completed" }
