package transport

import (
	"time"

	"crm_automation_backend/internal/crm/dedupe"
	"crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/crm/scoring"

	"github.com/google/uuid"
)

// Request DTOs

type CreateContactRequest struct {
	FirstName  string `json:"firstName" validate:"omitempty,max=100"`
	LastName   string `json:"lastName" validate:"omitempty,max=100"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Company    string `json:"company,omitempty" validate:"omitempty,max=200"`
	Address    string `json:"address,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city,omitempty" validate:"omitempty,max=100"`
	State      string `json:"state,omitempty" validate:"omitempty,max=100"`
	LeadSource string `json:"leadSource,omitempty" validate:"omitempty,max=50"`
	Notes      string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type UpdateContactRequest struct {
	FirstName       *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Company         *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Address         *string `json:"address,omitempty" validate:"omitempty,max=200"`
	City            *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State           *string `json:"state,omitempty" validate:"omitempty,max=100"`
	LeadSource      *string `json:"leadSource,omitempty" validate:"omitempty,max=50"`
	LeadTemperature *string `json:"leadTemperature,omitempty" validate:"omitempty,oneof=hot warm cold"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type LogInteractionRequest struct {
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`
	Type          string     `json:"type" validate:"required,oneof=call email meeting note web_form"`
	Direction     string     `json:"direction" validate:"required,oneof=inbound outbound"`
	Subject       string     `json:"subject,omitempty" validate:"omitempty,max=500"`
}

type CreateOpportunityRequest struct {
	Title             string     `json:"title" validate:"required,min=1,max=200"`
	ValueCents        int64      `json:"valueCents" validate:"omitempty"`
	Urgency           string     `json:"urgency,omitempty" validate:"omitempty,oneof=emergency high normal low"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
}

type UpdateOpportunityStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=new qualified proposal negotiation won lost"`
}

// Response DTOs

type ContactResponse struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Company         string    `json:"company,omitempty"`
	Address         string    `json:"address,omitempty"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	LeadSource      string    `json:"leadSource,omitempty"`
	LeadScore       int       `json:"leadScore"`
	LeadTemperature string    `json:"leadTemperature,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func ToContactResponse(contact domain.Contact) ContactResponse {
	return ContactResponse{
		ID:              contact.ID,
		FirstName:       contact.FirstName,
		LastName:        contact.LastName,
		Email:           contact.Email,
		Phone:           contact.Phone,
		Company:         contact.Company,
		Address:         contact.Address,
		City:            contact.City,
		State:           contact.State,
		LeadSource:      contact.LeadSource,
		LeadScore:       contact.LeadScore,
		LeadTemperature: contact.LeadTemperature,
		Notes:           contact.Notes,
		CreatedAt:       contact.CreatedAt,
		UpdatedAt:       contact.UpdatedAt,
	}
}

func ToContactResponses(contacts []domain.Contact) []ContactResponse {
	responses := make([]ContactResponse, 0, len(contacts))
	for _, contact := range contacts {
		responses = append(responses, ToContactResponse(contact))
	}
	return responses
}

type ContactListResponse struct {
	Items []ContactResponse `json:"items"`
	Total int               `json:"total"`
}

type DuplicateResponse struct {
	Contact    ContactResponse `json:"contact"`
	MatchScore int             `json:"matchScore"`
	Reasons    []string        `json:"reasons"`
}

func ToDuplicateResponses(candidates []dedupe.Candidate) []DuplicateResponse {
	responses := make([]DuplicateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		responses = append(responses, DuplicateResponse{
			Contact:    ToContactResponse(candidate.Contact),
			MatchScore: candidate.MatchScore,
			Reasons:    candidate.Reasons,
		})
	}
	return responses
}

type CreateContactResponse struct {
	Contact    ContactResponse     `json:"contact"`
	Duplicates []DuplicateResponse `json:"duplicates,omitempty"`
}

type InteractionResponse struct {
	ID            uuid.UUID  `json:"id"`
	ContactID     uuid.UUID  `json:"contactId"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`
	Type          string     `json:"type"`
	Direction     string     `json:"direction"`
	Subject       string     `json:"subject,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

func ToInteractionResponse(item domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:            item.ID,
		ContactID:     item.ContactID,
		OpportunityID: item.OpportunityID,
		Type:          item.Type,
		Direction:     item.Direction,
		Subject:       item.Subject,
		OccurredAt:    item.OccurredAt,
	}
}

type OpportunityResponse struct {
	ID                uuid.UUID  `json:"id"`
	ContactID         uuid.UUID  `json:"contactId"`
	Title             string     `json:"title"`
	Stage             string     `json:"stage"`
	ValueCents        int64      `json:"valueCents"`
	Urgency           string     `json:"urgency"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func ToOpportunityResponse(opp domain.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		ID:                opp.ID,
		ContactID:         opp.ContactID,
		Title:             opp.Title,
		Stage:             opp.Stage,
		ValueCents:        opp.ValueCents,
		Urgency:           opp.Urgency,
		ExpectedCloseDate: opp.ExpectedCloseDate,
		CreatedAt:         opp.CreatedAt,
		UpdatedAt:         opp.UpdatedAt,
	}
}

// ScoreResponse exposes the full scoring breakdown, including the advisory
// computed temperature.
type ScoreResponse struct {
	ContactID       uuid.UUID                `json:"contactId"`
	Score           int                      `json:"score"`
	Temperature     string                   `json:"temperature"`
	Factors         map[string]float64       `json:"factors"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
	AutoActions     []string                 `json:"autoActions"`
}

func ToScoreResponse(contactID uuid.UUID, result scoring.Result) ScoreResponse {
	return ScoreResponse{
		ContactID:       contactID,
		Score:           result.Score,
		Temperature:     result.Temperature,
		Factors:         result.Factors,
		Recommendations: result.Recommendations,
		AutoActions:     result.AutoActions,
	}
}
