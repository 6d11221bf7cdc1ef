// Package service implements the CRM application operations: contact
// management, the interaction log, opportunity pipeline moves and duplicate
// lookups. State changes are announced on the event bus; score recalculation
// and sequence enrollment react to those events rather than being called
// inline.
package service

import (
	"context"
	"strings"

	"crm_automation_backend/internal/crm/dedupe"
	"crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/crm/repository"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/platform/apperr"
	"crm_automation_backend/platform/logger"
	"crm_automation_backend/platform/phone"

	"github.com/google/uuid"
)

type Service struct {
	repo     repository.CRMRepository
	detector *dedupe.Detector
	bus      events.Bus
	log      *logger.Logger
}

func New(repo repository.CRMRepository, detector *dedupe.Detector, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, detector: detector, bus: bus, log: log}
}

// CreateContactInput carries the fields a caller may set on a new contact.
type CreateContactInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Company    string
	Address    string
	City       string
	State      string
	LeadSource string
	Notes      string
}

// CreateContact stores a new contact and reports any likely duplicates found
// among existing records. Duplicates do not block creation; the caller
// decides whether to merge.
func (s *Service) CreateContact(ctx context.Context, input CreateContactInput) (domain.Contact, []dedupe.Candidate, error) {
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return domain.Contact{}, nil, apperr.Validation("contact requires an email or phone number")
	}

	contact, err := s.repo.Create(ctx, repository.CreateContactParams{
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Email:      strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:      phone.NormalizeE164(input.Phone),
		Company:    strings.TrimSpace(input.Company),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		LeadSource: domain.NormalizeSource(input.LeadSource),
		Notes:      input.Notes,
	})
	if err != nil {
		return domain.Contact{}, nil, apperr.Wrap(apperr.KindInternal, "failed to create contact", err)
	}

	duplicates := s.findDuplicatesFor(ctx, contact)

	if s.bus != nil {
		s.bus.Publish(ctx, events.ContactCreated{
			BaseEvent: events.NewBaseEvent(),
			ContactID: contact.ID,
			Email:     contact.Email,
			Source:    contact.LeadSource,
		})
	}

	return contact, duplicates, nil
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (domain.Contact, error) {
	contact, err := s.repo.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return domain.Contact{}, apperr.NotFound("contact not found")
	}
	return contact, err
}

func (s *Service) ListContacts(ctx context.Context, params repository.ListContactsParams) ([]domain.Contact, int, error) {
	if params.Temperature != "" && !domain.IsKnownTemperature(params.Temperature) {
		return nil, 0, apperr.Validation("unknown temperature filter")
	}
	return s.repo.List(ctx, params)
}

// UpdateContactInput mirrors repository.UpdateContactParams; nil means leave
// the field unchanged.
type UpdateContactInput = repository.UpdateContactParams

func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, input UpdateContactInput) (domain.Contact, error) {
	if input.LeadTemperature != nil && !domain.IsKnownTemperature(*input.LeadTemperature) {
		return domain.Contact{}, apperr.Validation("unknown lead temperature")
	}
	if input.Phone != nil {
		normalized := phone.NormalizeE164(*input.Phone)
		input.Phone = &normalized
	}
	if input.LeadSource != nil {
		normalized := domain.NormalizeSource(*input.LeadSource)
		input.LeadSource = &normalized
	}

	contact, err := s.repo.Update(ctx, id, input)
	if err == repository.ErrNotFound {
		return domain.Contact{}, apperr.NotFound("contact not found")
	}
	return contact, err
}

// FindDuplicates returns likely duplicates of an existing contact.
func (s *Service) FindDuplicates(ctx context.Context, id uuid.UUID) ([]dedupe.Candidate, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.findDuplicatesFor(ctx, contact), nil
}

func (s *Service) findDuplicatesFor(ctx context.Context, contact domain.Contact) []dedupe.Candidate {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		// Duplicate detection is best-effort; a lookup failure must not fail
		// the underlying operation.
		if s.log != nil {
			s.log.DatabaseError("list_contacts_for_dedupe", err)
		}
		return nil
	}
	return s.detector.FindDuplicates(contact, all)
}

// LogInteractionInput describes one touchpoint to record.
type LogInteractionInput struct {
	ContactID     uuid.UUID
	OpportunityID *uuid.UUID
	Type          string
	Direction     string
	Subject       string
}

// LogInteraction appends to the interaction log. Interactions are immutable
// once written.
func (s *Service) LogInteraction(ctx context.Context, input LogInteractionInput) (domain.Interaction, error) {
	if !domain.IsKnownInteractionType(input.Type) {
		return domain.Interaction{}, apperr.Validation("unknown interaction type")
	}
	if !domain.IsKnownDirection(input.Direction) {
		return domain.Interaction{}, apperr.Validation("unknown interaction direction")
	}
	if _, err := s.GetContact(ctx, input.ContactID); err != nil {
		return domain.Interaction{}, err
	}

	item, err := s.repo.CreateInteraction(ctx, repository.CreateInteractionParams{
		ContactID:     input.ContactID,
		OpportunityID: input.OpportunityID,
		Type:          input.Type,
		Direction:     input.Direction,
		Subject:       strings.TrimSpace(input.Subject),
	})
	if err != nil {
		return domain.Interaction{}, apperr.Wrap(apperr.KindInternal, "failed to log interaction", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.InteractionLogged{
			BaseEvent:       events.NewBaseEvent(),
			ContactID:       item.ContactID,
			InteractionID:   item.ID,
			InteractionType: item.Type,
			Direction:       item.Direction,
		})
	}

	return item, nil
}

func (s *Service) ListInteractions(ctx context.Context, contactID uuid.UUID) ([]domain.Interaction, error) {
	return s.repo.ListInteractions(ctx, contactID)
}

func (s *Service) CreateOpportunity(ctx context.Context, params repository.CreateOpportunityParams) (domain.Opportunity, error) {
	if params.Urgency == "" {
		params.Urgency = domain.UrgencyNormal
	}
	if !domain.IsKnownUrgency(params.Urgency) {
		return domain.Opportunity{}, apperr.Validation("unknown urgency level")
	}
	if params.ValueCents < 0 {
		params.ValueCents = 0
	}
	if _, err := s.GetContact(ctx, params.ContactID); err != nil {
		return domain.Opportunity{}, err
	}

	opp, err := s.repo.CreateOpportunity(ctx, params)
	if err != nil {
		return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "failed to create opportunity", err)
	}
	return opp, nil
}

// ChangeOpportunityStage moves an opportunity through the pipeline, guarded
// by the stage transition table. Sequence triggers (proposal_sent, won_deal,
// lost_deal) hang off the published event.
func (s *Service) ChangeOpportunityStage(ctx context.Context, id uuid.UUID, newStage string) (domain.Opportunity, error) {
	if !domain.IsKnownStage(newStage) {
		return domain.Opportunity{}, apperr.Validation("unknown pipeline stage")
	}

	opp, err := s.repo.GetOpportunityByID(ctx, id)
	if err == repository.ErrNotFound {
		return domain.Opportunity{}, apperr.NotFound("opportunity not found")
	}
	if err != nil {
		return domain.Opportunity{}, err
	}

	if opp.Stage == newStage {
		return opp, nil
	}
	if !domain.CanTransitionStage(opp.Stage, newStage) {
		return domain.Opportunity{}, apperr.Conflict("invalid stage transition").
			WithDetails(map[string]string{"from": opp.Stage, "to": newStage})
	}

	oldStage := opp.Stage
	updated, err := s.repo.UpdateOpportunityStage(ctx, id, newStage)
	if err != nil {
		return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "failed to update opportunity stage", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.OpportunityStageChanged{
			BaseEvent:     events.NewBaseEvent(),
			ContactID:     updated.ContactID,
			OpportunityID: updated.ID,
			OldStage:      oldStage,
			NewStage:      updated.Stage,
			ValueCents:    updated.ValueCents,
		})
	}

	return updated, nil
}

func (s *Service) ListOpportunities(ctx context.Context, contactID uuid.UUID) ([]domain.Opportunity, error) {
	return s.repo.ListOpportunities(ctx, contactID)
}
