package domain

import (
	"time"

	"github.com/google/uuid"
)

// Interaction types.
const (
	InteractionCall    = "call"
	InteractionEmail   = "email"
	InteractionMeeting = "meeting"
	InteractionNote    = "note"
	InteractionWebForm = "web_form"
)

// Interaction directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

var knownInteractionTypes = map[string]struct{}{
	InteractionCall:    {},
	InteractionEmail:   {},
	InteractionMeeting: {},
	InteractionNote:    {},
	InteractionWebForm: {},
}

// IsKnownInteractionType reports whether value is a valid interaction type.
func IsKnownInteractionType(value string) bool {
	_, ok := knownInteractionTypes[value]
	return ok
}

// IsKnownDirection reports whether value is a valid direction.
func IsKnownDirection(value string) bool {
	return value == DirectionInbound || value == DirectionOutbound
}

// Interaction is an append-only log record of one touchpoint with a contact.
// Records are created once and never mutated.
type Interaction struct {
	ID            uuid.UUID
	ContactID     uuid.UUID
	OpportunityID *uuid.UUID
	Type          string
	Direction     string
	Subject       string
	OccurredAt    time.Time
}
