// Package domain holds the core CRM entities and their pure state rules.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Temperature classifies how ready a contact is to buy.
const (
	TemperatureHot  = "hot"
	TemperatureWarm = "warm"
	TemperatureCold = "cold"
)

// TemperatureForScore maps a lead score to its temperature band.
func TemperatureForScore(score int) string {
	switch {
	case score >= 70:
		return TemperatureHot
	case score >= 40:
		return TemperatureWarm
	default:
		return TemperatureCold
	}
}

// IsKnownTemperature reports whether value is a valid temperature.
func IsKnownTemperature(value string) bool {
	switch value {
	case TemperatureHot, TemperatureWarm, TemperatureCold:
		return true
	}
	return false
}

// Contact is a person or company record in the CRM.
type Contact struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Company         string
	Address         string
	City            string
	State           string
	LeadSource      string
	LeadScore       int
	LeadTemperature string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins first and last name, tolerating either being empty.
func (c *Contact) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// NormalizeSource canonicalizes a lead source for lookup: lowercased with
// spaces collapsed to underscores, so "Cold Call" and "cold_call" match.
func NormalizeSource(source string) string {
	normalized := strings.ToLower(strings.TrimSpace(source))
	return strings.ReplaceAll(normalized, " ", "_")
}
