package domain

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity pipeline stages.
const (
	StageNew         = "new"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// Opportunity urgency levels.
const (
	UrgencyEmergency = "emergency"
	UrgencyHigh      = "high"
	UrgencyNormal    = "normal"
	UrgencyLow       = "low"
)

var knownStages = map[string]struct{}{
	StageNew:         {},
	StageQualified:   {},
	StageProposal:    {},
	StageNegotiation: {},
	StageWon:         {},
	StageLost:        {},
}

var knownUrgencies = map[string]struct{}{
	UrgencyEmergency: {},
	UrgencyHigh:      {},
	UrgencyNormal:    {},
	UrgencyLow:       {},
}

// IsKnownStage reports whether value is a valid pipeline stage.
func IsKnownStage(value string) bool {
	_, ok := knownStages[value]
	return ok
}

// IsKnownUrgency reports whether value is a valid urgency level.
func IsKnownUrgency(value string) bool {
	_, ok := knownUrgencies[value]
	return ok
}

// stageTransitions encodes the forward pipeline plus the lost escape hatch.
// Won and lost are terminal; opportunities are never physically deleted.
var stageTransitions = map[string][]string{
	StageNew:         {StageQualified, StageLost},
	StageQualified:   {StageProposal, StageLost},
	StageProposal:    {StageNegotiation, StageWon, StageLost},
	StageNegotiation: {StageWon, StageLost},
	StageWon:         {},
	StageLost:        {},
}

// CanTransitionStage reports whether an opportunity may move from one stage
// to another.
func CanTransitionStage(from, to string) bool {
	for _, allowed := range stageTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStage reports whether a stage admits no further transitions.
func IsTerminalStage(stage string) bool {
	return stage == StageWon || stage == StageLost
}

// Opportunity is a potential deal attached to a contact.
type Opportunity struct {
	ID                uuid.UUID
	ContactID         uuid.UUID
	Title             string
	Stage             string
	ValueCents        int64
	Urgency           string
	ExpectedCloseDate *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Value returns the deal value in whole currency units. Malformed negative
// values are treated as zero so they cannot poison score arithmetic.
func (o *Opportunity) Value() float64 {
	if o.ValueCents < 0 {
		return 0
	}
	return float64(o.ValueCents) / 100
}
