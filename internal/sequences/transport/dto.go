// Package transport defines request and response DTOs for the sequences API.
package transport

import (
	"time"

	"crm_automation_backend/internal/sequences/domain"

	"github.com/google/uuid"
)

type EnrollRequest struct {
	ContactID  uuid.UUID `json:"contactId" validate:"required"`
	SequenceID string    `json:"sequenceId" validate:"required"`
}

type EnrollmentResponse struct {
	ID          string     `json:"id"`
	ContactID   uuid.UUID  `json:"contactId"`
	SequenceID  string     `json:"sequenceId"`
	CurrentStep int        `json:"currentStep"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func ToEnrollmentResponse(e domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:          e.ID,
		ContactID:   e.ContactID,
		SequenceID:  e.SequenceID,
		CurrentStep: e.CurrentStep,
		Status:      e.Status,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
	}
}

func ToEnrollmentResponses(enrollments []domain.Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, ToEnrollmentResponse(e))
	}
	return out
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type StepResponse struct {
	TemplateType string `json:"templateType"`
	DelayHours   int    `json:"delayHours"`
	Condition    string `json:"condition,omitempty"`
}

type SequenceResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Trigger string         `json:"trigger"`
	Active  bool           `json:"active"`
	Steps   []StepResponse `json:"steps"`
}

func ToSequenceResponse(seq domain.Sequence) SequenceResponse {
	steps := make([]StepResponse, 0, len(seq.Steps))
	for _, s := range seq.Steps {
		steps = append(steps, StepResponse{
			TemplateType: string(s.TemplateType),
			DelayHours:   s.DelayHours,
			Condition:    s.ConditionName,
		})
	}
	return SequenceResponse{
		ID:      seq.ID,
		Name:    seq.Name,
		Trigger: seq.Trigger,
		Active:  seq.Active,
		Steps:   steps,
	}
}

func ToSequenceResponses(sequences []domain.Sequence) []SequenceResponse {
	out := make([]SequenceResponse, 0, len(sequences))
	for _, seq := range sequences {
		out = append(out, ToSequenceResponse(seq))
	}
	return out
}
