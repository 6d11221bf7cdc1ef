// Package scoring computes lead scores from contact, interaction and
// opportunity data. The engine is pure: same inputs and clock always produce
// the same result, and inputs are never mutated.
package scoring

import (
	"math"
	"strings"
	"time"

	"crm_automation_backend/internal/crm/domain"
)

// Action tokens the engine can recommend. These are machine-actionable and
// consumed by automation, not just displayed.
const (
	ActionSendWelcomeEmail         = "SEND_WELCOME_EMAIL"
	ActionEscalateToManager        = "ESCALATE_TO_MANAGER"
	ActionGenerateProposalTemplate = "GENERATE_PROPOSAL_TEMPLATE"
	ActionTriggerReengagementEmail = "TRIGGER_REENGAGEMENT_EMAIL"
	ActionAssignToSalesRep         = "ASSIGN_TO_SALES_REP"
	ActionSendSMSAlert             = "SEND_SMS_ALERT"
)

// Maximum contribution from each factor category. The totals stay in 0-100
// because the positive caps sum to 100 and decay only subtracts.
const (
	maxCompletenessContribution = 20.0
	maxEngagementContribution   = 30.0
	maxValueContribution        = 25.0
	maxUrgencyContribution      = 15.0
	maxSourceContribution       = 10.0
	maxDecayMagnitude           = 20.0
)

// urgentKeywords are scanned case-insensitively in contact notes.
var urgentKeywords = []string{"emergency", "urgent", "asap", "immediately", "damage", "broken"}

// sourceScoreTable maps normalized lead sources to their quality scores.
// Higher scores indicate better conversion rates for the channel.
var sourceScoreTable = map[string]float64{
	"referral":          10,
	"existing_customer": 10,
	"partner":           9,
	"website":           7,
	"social_media":      6,
	"email_campaign":    6,
	"trade_show":        5,
	"cold_call":         3,
	"purchased_list":    2,
	"unknown":           1,
}

// defaultSourceScore applies when the source matches no table entry.
const defaultSourceScore = 5.0

// Recommendation is a human-readable suggestion paired with zero or more
// machine-actionable tokens.
type Recommendation struct {
	Message string   `json:"message"`
	Actions []string `json:"actions"`
}

// Result holds scoring output and factor details.
type Result struct {
	Score           int                `json:"score"`
	Temperature     string             `json:"temperature"`
	Factors         map[string]float64 `json:"factors"`
	Recommendations []Recommendation   `json:"recommendations"`
	AutoActions     []string           `json:"autoActions"`
}

// Engine computes lead scores. It carries no state and is safe for
// concurrent use.
type Engine struct{}

// NewEngine creates a scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the full scoring result for a contact as of now. The clock
// is explicit so callers and tests get deterministic results.
func (e *Engine) Score(contact domain.Contact, interactions []domain.Interaction, opportunities []domain.Opportunity, now time.Time) Result {
	factors := map[string]float64{}

	completeness := e.scoreCompleteness(contact)
	addFactor(factors, "completeness", completeness)

	engagement := e.scoreEngagement(interactions, now)
	addFactor(factors, "engagement", engagement)

	value := e.scoreValue(opportunities)
	addFactor(factors, "value", value)

	urgency, hasEmergency := e.scoreUrgency(contact, opportunities, now)
	addFactor(factors, "urgency", urgency)

	source := e.scoreSource(contact)
	addFactor(factors, "source", source)

	decay := e.scoreDecay(contact, interactions, now)
	addFactor(factors, "decay", -decay)

	score := clampScore(completeness + engagement + value + urgency + source - decay)
	temperature := domain.TemperatureForScore(score)

	recommendations := e.recommend(scoreBreakdown{
		completeness: completeness,
		engagement:   engagement,
		value:        value,
		decay:        decay,
		hasEmergency: hasEmergency,
		temperature:  temperature,
	}, opportunities)

	return Result{
		Score:           score,
		Temperature:     temperature,
		Factors:         factors,
		Recommendations: recommendations,
		AutoActions:     collectActions(recommendations),
	}
}

// scoreCompleteness rewards filled-in contact fields.
func (e *Engine) scoreCompleteness(contact domain.Contact) float64 {
	// Baseline for the record existing at all.
	score := 5.0

	if strings.TrimSpace(contact.Email) != "" {
		score += 3
	}
	if strings.TrimSpace(contact.Phone) != "" {
		score += 4
	}
	if strings.TrimSpace(contact.Company) != "" {
		score += 2
	}
	if strings.TrimSpace(contact.Address) != "" &&
		strings.TrimSpace(contact.City) != "" &&
		strings.TrimSpace(contact.State) != "" {
		score += 3
	}
	if len(contact.Notes) > 20 {
		score += 3
	}

	return clampFloat(score, 0, maxCompletenessContribution)
}

// scoreEngagement rewards interaction volume, recency, variety and
// two-way communication.
func (e *Engine) scoreEngagement(interactions []domain.Interaction, now time.Time) float64 {
	if len(interactions) == 0 {
		return 0
	}

	score := clampFloat(float64(len(interactions)), 0, 10)

	recent := 0
	for _, item := range interactions {
		if now.Sub(item.OccurredAt) <= 7*24*time.Hour {
			recent++
		}
	}
	score += clampFloat(float64(recent)*2, 0, 10)

	types := map[string]struct{}{}
	for _, item := range interactions {
		types[item.Type] = struct{}{}
	}
	score += clampFloat(float64(len(types)), 0, 5)

	hasInbound := false
	hasOutbound := false
	for _, item := range interactions {
		switch item.Direction {
		case domain.DirectionInbound:
			hasInbound = true
		case domain.DirectionOutbound:
			hasOutbound = true
		}
	}
	if hasInbound && hasOutbound {
		score += 5
	}

	return clampFloat(score, 0, maxEngagementContribution)
}

// scoreValue rewards pipeline value. The tier bonus is non-stacking: only the
// highest crossed threshold counts.
func (e *Engine) scoreValue(opportunities []domain.Opportunity) float64 {
	if len(opportunities) == 0 {
		return 0
	}

	score := 5.0

	total := 0.0
	for _, opp := range opportunities {
		total += opp.Value()
	}

	switch {
	case total >= 100_000:
		score += 20
	case total >= 50_000:
		score += 15
	case total >= 25_000:
		score += 10
	case total >= 10_000:
		score += 5
	}

	return clampFloat(score, 0, maxValueContribution)
}

// scoreUrgency detects time pressure. An emergency opportunity short-circuits
// to the cap and ignores every other contribution.
func (e *Engine) scoreUrgency(contact domain.Contact, opportunities []domain.Opportunity, now time.Time) (float64, bool) {
	hasHigh := false
	for _, opp := range opportunities {
		switch opp.Urgency {
		case domain.UrgencyEmergency:
			return maxUrgencyContribution, true
		case domain.UrgencyHigh:
			hasHigh = true
		}
	}

	score := 0.0
	if hasHigh {
		score += 10
	}

	if containsAny(strings.ToLower(contact.Notes), urgentKeywords) {
		score += 8
	}

	for _, opp := range opportunities {
		if opp.ExpectedCloseDate == nil {
			continue
		}
		daysUntil := opp.ExpectedCloseDate.Sub(now).Hours() / 24
		if daysUntil >= 0 && daysUntil <= 7 {
			score += 7
			break
		}
	}

	return clampFloat(score, 0, maxUrgencyContribution), false
}

// scoreSource looks up acquisition channel quality.
func (e *Engine) scoreSource(contact domain.Contact) float64 {
	normalized := domain.NormalizeSource(contact.LeadSource)
	if value, ok := sourceScoreTable[normalized]; ok {
		return clampFloat(value, 0, maxSourceContribution)
	}
	return defaultSourceScore
}

// scoreDecay returns the positive magnitude subtracted for staleness. When
// interactions exist it keys off the most recent one; otherwise off the age
// of the contact record, on a slightly harsher scale.
func (e *Engine) scoreDecay(contact domain.Contact, interactions []domain.Interaction, now time.Time) float64 {
	if len(interactions) > 0 {
		latest := interactions[0].OccurredAt
		for _, item := range interactions {
			if item.OccurredAt.After(latest) {
				latest = item.OccurredAt
			}
		}
		days := now.Sub(latest).Hours() / 24
		switch {
		case days <= 7:
			return 0
		case days <= 14:
			return 3
		case days <= 30:
			return 8
		case days <= 60:
			return 15
		default:
			return maxDecayMagnitude
		}
	}

	days := now.Sub(contact.CreatedAt).Hours() / 24
	switch {
	case days <= 7:
		return 0
	case days <= 14:
		return 5
	case days <= 30:
		return 10
	case days <= 60:
		return 15
	default:
		return maxDecayMagnitude
	}
}

// scoreBreakdown carries the sub-scores recommend needs. Keeping it a struct
// avoids a long parameter list as rules accumulate.
type scoreBreakdown struct {
	completeness float64
	engagement   float64
	value        float64
	decay        float64
	hasEmergency bool
	temperature  string
}

// recommend evaluates the rule set. Rules are non-exclusive: several can fire
// for the same contact.
func (e *Engine) recommend(b scoreBreakdown, opportunities []domain.Opportunity) []Recommendation {
	recommendations := make([]Recommendation, 0, 4)

	if b.completeness < 10 {
		recommendations = append(recommendations, Recommendation{
			Message: "Contact record is incomplete; capture phone, company and address details",
		})
	}

	if b.engagement == 0 {
		recommendations = append(recommendations, Recommendation{
			Message: "No interactions logged yet; start the conversation",
			Actions: []string{ActionSendWelcomeEmail},
		})
	}

	if b.engagement >= 25 {
		recommendations = append(recommendations, Recommendation{
			Message: "Highly engaged contact; route to a sales rep for personal follow-up",
			Actions: []string{ActionAssignToSalesRep},
		})
	}

	if b.hasEmergency {
		recommendations = append(recommendations, Recommendation{
			Message: "Emergency-level opportunity; escalate immediately",
			Actions: []string{ActionEscalateToManager, ActionSendSMSAlert},
		})
	}

	if b.value >= 20 {
		recommendations = append(recommendations, Recommendation{
			Message: "High pipeline value; prepare a proposal",
			Actions: []string{ActionGenerateProposalTemplate},
		})
	}

	if b.decay >= 15 {
		recommendations = append(recommendations, Recommendation{
			Message: "Contact is going stale; re-engage before the lead is lost",
			Actions: []string{ActionTriggerReengagementEmail},
		})
	}

	if b.temperature == domain.TemperatureHot && !hasProposalOrLater(opportunities) {
		recommendations = append(recommendations, Recommendation{
			Message: "Hot lead without a proposal in flight; move the deal forward",
			Actions: []string{ActionGenerateProposalTemplate, ActionAssignToSalesRep},
		})
	}

	return recommendations
}

func hasProposalOrLater(opportunities []domain.Opportunity) bool {
	for _, opp := range opportunities {
		switch opp.Stage {
		case domain.StageProposal, domain.StageNegotiation, domain.StageWon:
			return true
		}
	}
	return false
}

// collectActions flattens recommendation actions into a deduplicated list,
// preserving first-seen order.
func collectActions(recommendations []Recommendation) []string {
	seen := map[string]struct{}{}
	actions := make([]string, 0, 4)
	for _, rec := range recommendations {
		for _, action := range rec.Actions {
			if _, ok := seen[action]; ok {
				continue
			}
			seen[action] = struct{}{}
			actions = append(actions, action)
		}
	}
	return actions
}

// containsAny checks if s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func addFactor(factors map[string]float64, key string, value float64) {
	if math.Abs(value) < 0.01 {
		return
	}
	// Round to 1 decimal place for cleaner factor display
	factors[key] = math.Round(value*10) / 10
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func clampFloat(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
