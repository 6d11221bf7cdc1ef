// Package dedupe finds likely duplicate contacts using exact and fuzzy
// field comparison. The detector is pure and never errors: a missing field
// simply skips that matching dimension.
package dedupe

import (
	"strings"

	"crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/platform/phone"
)

// Match score weights per dimension.
const (
	emailMatchScore     = 50
	phoneMatchScore     = 40
	nameExactMatchScore = 30
	nameFuzzyMatchScore = 15
	addressFuzzyScore   = 10
	duplicateThreshold  = 60
	similarityThreshold = 0.8
)

// Candidate pairs a potential duplicate with the evidence for it.
type Candidate struct {
	Contact    domain.Contact
	MatchScore int
	Reasons    []string
}

// Detector compares contacts for duplication.
type Detector struct{}

// NewDetector creates a duplicate detector.
func NewDetector() *Detector {
	return &Detector{}
}

// FindDuplicates returns every contact in candidates whose match score
// against the given contact reaches the duplicate threshold. The contact
// itself is excluded by ID.
func (d *Detector) FindDuplicates(contact domain.Contact, candidates []domain.Contact) []Candidate {
	duplicates := make([]Candidate, 0)
	for _, other := range candidates {
		if other.ID == contact.ID {
			continue
		}
		score, reasons := d.MatchScore(contact, other)
		if score >= duplicateThreshold {
			duplicates = append(duplicates, Candidate{
				Contact:    other,
				MatchScore: score,
				Reasons:    reasons,
			})
		}
	}
	return duplicates
}

// MatchScore computes the accumulated duplicate evidence between two
// contacts. The computation is symmetric.
func (d *Detector) MatchScore(a, b domain.Contact) (int, []string) {
	score := 0
	reasons := make([]string, 0, 4)

	emailA := strings.ToLower(strings.TrimSpace(a.Email))
	emailB := strings.ToLower(strings.TrimSpace(b.Email))
	if emailA != "" && emailA == emailB {
		score += emailMatchScore
		reasons = append(reasons, "email match")
	}

	phoneA := phone.Digits(a.Phone)
	phoneB := phone.Digits(b.Phone)
	if phoneA != "" && phoneA == phoneB {
		score += phoneMatchScore
		reasons = append(reasons, "phone match")
	}

	nameA := strings.ToLower(a.FullName())
	nameB := strings.ToLower(b.FullName())
	if nameA != "" && nameB != "" {
		if nameA == nameB {
			score += nameExactMatchScore
			reasons = append(reasons, "name match")
		} else if Similarity(nameA, nameB) >= similarityThreshold {
			score += nameFuzzyMatchScore
			reasons = append(reasons, "similar name")
		}
	}

	addressA := strings.ToLower(strings.TrimSpace(a.Address))
	addressB := strings.ToLower(strings.TrimSpace(b.Address))
	if addressA != "" && addressB != "" && Similarity(addressA, addressB) >= similarityThreshold {
		score += addressFuzzyScore
		reasons = append(reasons, "similar address")
	}

	return score, reasons
}

// Similarity returns a normalized edit-distance score in [0,1], where 1 is
// an exact match. Defined as (len(longer) - levenshtein) / len(longer).
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longer, shorter := a, b
	if len(longer) < len(shorter) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 1
	}
	distance := levenshtein(longer, shorter)
	return float64(len(longer)-distance) / float64(len(longer))
}

// levenshtein computes edit distance with a rolling two-row matrix.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	previous := make([]int, len(rb)+1)
	current := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		previous[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		current[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[j] = min3(
				previous[j]+1,
				current[j-1]+1,
				previous[j-1]+cost,
			)
		}
		previous, current = current, previous
	}

	return previous[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
